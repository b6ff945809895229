package response

import (
	"errors"
)

// Error is a domain error that already knows its HTTP status and public code.
type Error struct {
	Code    int
	ErrCode string
	Err     error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.ErrCode == t.ErrCode && e.Err.Error() == t.Err.Error()
}

func NewError(code int, errCode string, err string) error {
	return &Error{Code: code, ErrCode: errCode, Err: errors.New(err)}
}

// Wrap attaches an HTTP status and public code to an existing error.
func Wrap(code int, errCode string, err error) error {
	return &Error{Code: code, ErrCode: errCode, Err: err}
}
