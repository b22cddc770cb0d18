package stls

import (
	"github.com/brickingsoft/errors"
	"strconv"
	"syscall"
)

// SyscallError is a transport level failure reported by an Engine.
// Code -1 means the engine could not transfer any data, which is what a
// zero-length write reports on most TLS stacks.
type SyscallError struct {
	Code int
	Err  error
}

func NewSyscallError(code int, err error) *SyscallError {
	return &SyscallError{Code: code, Err: err}
}

func (e *SyscallError) Error() string {
	s := "syscall error " + strconv.Itoa(e.Code)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *SyscallError) Unwrap() error {
	return e.Err
}

// AsSyscallError finds the first *SyscallError in err's chain.
func AsSyscallError(err error) (*SyscallError, bool) {
	var sysErr *SyscallError
	if errors.As(err, &sysErr) {
		return sysErr, true
	}
	return nil, false
}

func isNoDataTransferred(err error) bool {
	sysErr, ok := AsSyscallError(err)
	return ok && sysErr.Code == -1
}

// IsTimeout reports whether err is a waiter timeout, i.e. anything in the
// chain that says Timeout() == true (os.ErrDeadlineExceeded included).
func IsTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) {
		return timeout.Timeout()
	}
	return false
}

func isAgain(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
