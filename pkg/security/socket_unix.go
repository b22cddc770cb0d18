//go:build unix

package security

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/stls"
	"github.com/brickingsoft/stls/pkg/sys"
	"net"
	"syscall"
)

// connector is a socket that runs its own non-blocking connect, such as
// stls.NetSocket, which also records the addresses.
type connector interface {
	Connect(addr net.Addr) error
	ConnectResult() error
}

func (e *Engine) read(b []byte) (n int, err error) {
	for {
		n, err = syscall.Read(e.fd, b)
		if err == syscall.EINTR {
			continue
		}
		break
	}
	if n < 0 {
		n = 0
	}
	return
}

func (e *Engine) write(b []byte) (n int, err error) {
	for {
		n, err = syscall.Write(e.fd, b)
		if err == syscall.EINTR {
			continue
		}
		break
	}
	if n < 0 {
		n = 0
	}
	return
}

func (e *Engine) connect(addr net.Addr) error {
	e.bio.setRemoteAddr(addr)
	if c, ok := e.sock.(connector); ok {
		return e.connectOutcome(c.Connect(addr))
	}
	sa, saErr := sys.AddrToSockaddr(addr)
	if saErr != nil {
		return saErr
	}
	var err error
	for {
		err = syscall.Connect(e.fd, sa)
		if err == syscall.EINTR {
			continue
		}
		break
	}
	return e.connectOutcome(err)
}

func (e *Engine) connectResult() error {
	if c, ok := e.sock.(connector); ok {
		return e.connectOutcome(c.ConnectResult())
	}
	soerr, err := syscall.GetsockoptInt(e.fd, syscall.SOL_SOCKET, syscall.SO_ERROR)
	if err != nil {
		return socketError("getsockopt", err)
	}
	if soerr == 0 {
		return e.connectOutcome(nil)
	}
	return e.connectOutcome(syscall.Errno(soerr))
}

// connectOutcome maps the outcome of a connect step to an engine signal.
func (e *Engine) connectOutcome(err error) error {
	switch {
	case err == nil, errors.Is(err, syscall.EISCONN):
		e.connecting = false
		return nil
	case errors.Is(err, syscall.EINPROGRESS), errors.Is(err, syscall.EALREADY), errors.Is(err, syscall.EINTR):
		e.connecting = true
		return stls.ErrWantWrite
	default:
		e.connecting = false
		return socketError("connect", err)
	}
}
