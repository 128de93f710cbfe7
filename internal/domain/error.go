package domain

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrorDomain is the tag attached to every error raised by this plugin
const ErrorDomain = "xroot"

// Error is a failure reported to the host: a domain tag, a POSIX errno and a message.
type Error struct {
	Domain  string
	Code    syscall.Errno
	Op      string
	Message string
	Err     error
}

// Errorf builds an Error for op with a formatted message
func Errorf(code syscall.Errno, op, format string, args ...any) *Error {
	return &Error{
		Domain:  ErrorDomain,
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap builds an Error for op that keeps err as its cause
func Wrap(err error, code syscall.Errno, op, format string, args ...any) *Error {
	e := Errorf(code, op, format, args...)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("[%s] %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on the errno as well as the cause
func (e *Error) Is(target error) bool {
	if errno, ok := target.(syscall.Errno); ok {
		return e.Code == errno
	}
	return false
}

// Prefixed returns a copy of e whose op is prefixed with op.
// Used when an inner operation's error is propagated by an outer one.
func (e *Error) Prefixed(op string) *Error {
	c := *e
	if c.Op == "" {
		c.Op = op
	} else {
		c.Op = op + "][" + c.Op
	}
	return &c
}

// Errno extracts the POSIX error number carried by err.
// Sentinel errors map to their natural errno, anything else is EIO.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, ErrAlreadyExists):
		return syscall.EEXIST
	case errors.Is(err, ErrPermissionDenied):
		return syscall.EACCES
	case errors.Is(err, ErrNotDirectory):
		return syscall.ENOTDIR
	case errors.Is(err, ErrNotFile):
		return syscall.EISDIR
	case errors.Is(err, ErrBadHandle):
		return syscall.EBADF
	case errors.Is(err, ErrNotSupported):
		return syscall.ENOTSUP
	case errors.Is(err, ErrTimeout):
		return syscall.ETIMEDOUT
	case errors.Is(err, ErrCanceled):
		return syscall.ECANCELED
	case errors.Is(err, ErrInvalidChecksum), errors.Is(err, ErrConfigInvalid):
		return syscall.EINVAL
	case errors.Is(err, ErrConfigKeyNotFound):
		return syscall.ENOENT
	}
	return syscall.EIO
}
