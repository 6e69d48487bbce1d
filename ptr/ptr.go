// Package ptr implements RFC 6901 JSON Pointers, used throughout this
// module to address a location inside a composite jsonval.Json value:
// an object field by key, an array element by index, or (the special
// "-" token) the position past the end of an array.
package ptr

import (
	"strconv"
	"strings"

	"github.com/brunokim/crlite/crdterr"
)

// Token is one reference-token of a pointer, already unescaped.
type Token string

// Pointer is a parsed JSON Pointer: a sequence of reference tokens. The
// empty Pointer addresses the document root.
type Pointer struct {
	Tokens []Token
}

// Root is the pointer addressing the whole document.
var Root = Pointer{}

// Parse parses s per RFC 6901: it must be empty or start with "/", with
// "~1" and "~0" escapes decoded to "/" and "~" respectively.
func Parse(s string) (Pointer, error) {
	if s == "" {
		return Root, nil
	}
	if !strings.HasPrefix(s, "/") {
		return Pointer{}, crdterr.ErrInvalidPointer
	}
	parts := strings.Split(s[1:], "/")
	tokens := make([]Token, len(parts))
	for i, p := range parts {
		tokens[i] = Token(unescape(p))
	}
	return Pointer{Tokens: tokens}, nil
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	s = strings.ReplaceAll(s, "~0", "~")
	return s
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}

// String renders the pointer back to its RFC 6901 textual form.
func (p Pointer) String() string {
	if len(p.Tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range p.Tokens {
		b.WriteByte('/')
		b.WriteString(escape(string(t)))
	}
	return b.String()
}

// IsRoot reports whether p addresses the document root.
func (p Pointer) IsRoot() bool {
	return len(p.Tokens) == 0
}

// Head returns the first token and the remaining pointer, if non-root.
func (p Pointer) Head() (Token, Pointer, bool) {
	if len(p.Tokens) == 0 {
		return "", Pointer{}, false
	}
	return p.Tokens[0], Pointer{Tokens: p.Tokens[1:]}, true
}

// Append returns a new pointer with token appended.
func (p Pointer) Append(t Token) Pointer {
	tokens := make([]Token, len(p.Tokens)+1)
	copy(tokens, p.Tokens)
	tokens[len(p.Tokens)] = t
	return Pointer{Tokens: tokens}
}

// Array index tokens and the "-" end-of-array token are handled together: a
// numeric array index token parses to an int via Index, while "-" means
// "one past the last element".

// EndOfArray is the reference token RFC 6901 reserves to address the
// position after an array's last element.
const EndOfArray = Token("-")

// Index parses a token as a non-negative array index. It returns
// crdterr.ErrInvalidIndex if t isn't a valid index token (including "-",
// which callers must special-case via EndOfArray before calling Index).
func Index(t Token) (int, error) {
	if t == EndOfArray || t == "" {
		return 0, crdterr.ErrInvalidIndex
	}
	if t[0] == '0' && len(t) > 1 {
		// RFC 6901 forbids leading zeros other than the literal "0".
		return 0, crdterr.ErrInvalidIndex
	}
	n, err := strconv.Atoi(string(t))
	if err != nil || n < 0 {
		return 0, crdterr.ErrInvalidIndex
	}
	return n, nil
}
