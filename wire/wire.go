/*
Package wire provides the dual-encoding round-trip helpers shared by
every CRDT's state and op types: every exported type must deserialize
identically whether it travels as textual JSON or as self-describing
binary CBOR (the Go counterpart of the original library's choice of
serde_json / rmp_serde).
*/
package wire

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

// EncodeJSON marshals v to its textual encoding.
func EncodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeJSON unmarshals data into a fresh *T.
func DecodeJSON[T any](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// EncodeCBOR marshals v to its binary encoding.
func EncodeCBOR(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

// DecodeCBOR unmarshals data into a fresh *T.
func DecodeCBOR[T any](data []byte) (T, error) {
	var v T
	err := cbor.Unmarshal(data, &v)
	return v, err
}

// RoundTripJSON encodes then decodes v through JSON, returning the
// reconstructed value.
func RoundTripJSON[T any](v T) (T, error) {
	data, err := EncodeJSON(v)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeJSON[T](data)
}

// RoundTripCBOR encodes then decodes v through CBOR, returning the
// reconstructed value.
func RoundTripCBOR[T any](v T) (T, error) {
	data, err := EncodeCBOR(v)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeCBOR[T](data)
}
