package device

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrAddressNotPadded = errors.New("address bytes 6 and 7 must be zero")
	ErrNameTooLong      = errors.New("device name too long")
	ErrInvalidKind      = errors.New("invalid device kind")
	ErrNameEncoding     = errors.New("device name is not valid UTF-8")
	ErrUnknownDevice    = errors.New("unknown device")
)

// InvalidKindError carries a wire device-kind code that maps to no Kind.
type InvalidKindError struct {
	Code int32
}

func (e *InvalidKindError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invalid device kind %d", e.Code)
}

// Is matches ErrInvalidKind and any InvalidKindError with the same code.
func (e *InvalidKindError) Is(target error) bool {
	if e == nil {
		return false
	}
	if target == ErrInvalidKind {
		return true
	}
	t, ok := target.(*InvalidKindError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
