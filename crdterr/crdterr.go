// Package crdterr defines the closed set of errors returned by every CRDT
// in this module. All errors are explicit return values; nothing here
// panics or unwinds.
package crdterr

import "errors"

// Sentinel errors. Wrap with golang.org/x/xerrors.Errorf("...: %w", err)
// to attach context while keeping errors.Is comparisons working.
var (
	// ErrAlreadyHasSiteID is returned by AddSiteID on a CRDT that already
	// has a non-zero site.
	ErrAlreadyHasSiteID = errors.New("crdt: already has a site id")

	// ErrAwaitingSiteID means the mutation succeeded locally but the op
	// was cached because the CRDT has no site id yet.
	ErrAwaitingSiteID = errors.New("crdt: awaiting site id")

	// ErrCannotMerge means two states describe incompatible logical
	// objects (e.g. a type mismatch).
	ErrCannotMerge = errors.New("crdt: cannot merge incompatible states")

	// ErrDoesNotExist means a pointer or path segment did not resolve.
	ErrDoesNotExist = errors.New("crdt: does not exist")

	// ErrKeyDoesNotExist means a map key was not found.
	ErrKeyDoesNotExist = errors.New("crdt: key does not exist")

	// ErrUIDDoesNotExist means a referenced UID is absent from the tree.
	ErrUIDDoesNotExist = errors.New("crdt: uid does not exist")

	// ErrDuplicateUID means a tree insert collided with an existing UID.
	ErrDuplicateUID = errors.New("crdt: duplicate uid")

	// ErrInvalidIndex means a numeric index argument was malformed.
	ErrInvalidIndex = errors.New("crdt: invalid index")

	// ErrOutOfBounds means a numeric index argument exceeded the
	// addressable range.
	ErrOutOfBounds = errors.New("crdt: index out of bounds")

	// ErrInvalidJSON means text could not be parsed as JSON.
	ErrInvalidJSON = errors.New("crdt: invalid json")

	// ErrInvalidOp means a remote op references entities the receiver
	// cannot resolve even after causal prerequisites are applied.
	ErrInvalidOp = errors.New("crdt: invalid op")

	// ErrInvalidLocalOp means a derived local op could not be computed.
	ErrInvalidLocalOp = errors.New("crdt: invalid local op")

	// ErrInvalidPointer means a JSON pointer string was malformed.
	ErrInvalidPointer = errors.New("crdt: invalid json pointer")

	// ErrInvalidSiteID means a state contained an unassigned site 0
	// where one was not permitted.
	ErrInvalidSiteID = errors.New("crdt: invalid site id")

	// ErrNoop means an operation had no observable effect. Used
	// internally; most public APIs report a no-op by returning a nil op
	// rather than this error.
	ErrNoop = errors.New("crdt: operation had no effect")

	// ErrWrongJSONType means an operation isn't defined on the JSON node
	// a pointer resolved to.
	ErrWrongJSONType = errors.New("crdt: operation not defined on this json type")
)
