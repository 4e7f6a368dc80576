package domain

import (
	"errors"
	"fmt"
)

type Error struct {
	orig error
	msg  string
	code error
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}

	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

func WrapErrorf(orig error, code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

func NewErrorf(code error, format string, a ...interface{}) error {
	return WrapErrorf(nil, code, format, a...)
}

func (e *Error) Code() error {
	return e.code
}

// Is lets errors.Is match both the wrapped cause and the error code.
func (e *Error) Is(target error) bool {
	return errors.Is(e.code, target)
}

var (
	// ErrQueueEmpty will throw when popping an empty vertex queue
	ErrQueueEmpty = errors.New("trying to pop an empty vertex queue")
	// ErrSearchExhausted will throw if the vertex queue empties before any vertex satisfies the goal condition
	ErrSearchExhausted = errors.New("search space exhausted before reaching the goal condition")
	// ErrMapLoad will throw if a map file cannot be loaded
	ErrMapLoad = errors.New("unable to load map file")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("your requested Item is not found")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given Param is not valid")
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal Server Error")
)

var MessageInternalServerError string = "internal server error"
