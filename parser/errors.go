package parser

import (
	"errors"
	"fmt"
)

// ErrDecode marks sheets whose header cannot be decoded. Callers that only
// care whether a sheet was usable can match it with errors.Is.
var ErrDecode = errors.New("report decode failed")

// DecodeError carries the sheet and header field that failed to decode.
type DecodeError struct {
	Sheet string
	Field string
	Value string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("sheet %q: cannot decode %s from %q", e.Sheet, e.Field, e.Value)
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}
