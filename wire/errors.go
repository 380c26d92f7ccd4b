package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Decoding errors. All of them are fatal for the call that returns them.
var (
	ErrUnexpectedEOF            = errors.New("unexpected EOF")
	ErrMalformedVarint          = errors.New("malformed varint")
	ErrTruncatedLengthDelimited = errors.New("truncated length-delimited field")
	ErrIntegerOverflow          = errors.New("integer overflow")
	ErrInvalidWireType          = errors.New("invalid wire type")
	ErrInvalidFieldNumber       = errors.New("invalid field number")
	ErrRecursionLimit           = errors.New("exceeded maximum recursion depth")
)

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["instances", "parameters", "value", "prefixed"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for compatibility.
func (e *FieldError) Is(target error) bool {
	_, ok := target.(*FieldError)
	return ok
}

// WrapField prepends fieldName to the path carried by err.
func WrapField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}
