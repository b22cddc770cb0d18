//go:build unix

package security

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/stls"
	"os"
	"syscall"
)

func isAgain(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

// socketError turns a failed socket call into the engine's transport error.
// The errno becomes the code; anything without one is reported as -1.
func socketError(name string, err error) error {
	code := -1
	var errno syscall.Errno
	if errors.As(err, &errno) {
		code = int(errno)
	}
	var sysErr *os.SyscallError
	if !errors.As(err, &sysErr) {
		err = os.NewSyscallError(name, err)
	}
	return stls.NewSyscallError(code, err)
}
