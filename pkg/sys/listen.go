//go:build linux

package sys

import (
	"github.com/brickingsoft/errors"
	"net"
	"os"
	"syscall"
)

type ListenOptions struct {
	// Backlog overrides MaxListenerBacklog when positive.
	Backlog int
	// DeferAccept wakes the listener only once data has arrived (tcp only).
	DeferAccept bool
}

func NewListener(network string, address string) (*Listener, error) {
	addr, family, ipv6only, addrErr := ResolveAddr(network, address)
	if addrErr != nil {
		return nil, errors.New("new listener failed", errors.WithWrap(addrErr))
	}
	return &Listener{
		network:  network,
		address:  address,
		family:   family,
		ipv6only: ipv6only,
		addr:     addr,
	}, nil
}

type Listener struct {
	network  string
	address  string
	family   int
	ipv6only bool
	addr     net.Addr
}

func (ln *Listener) Addr() net.Addr {
	return ln.addr
}

func (ln *Listener) Listen(options ListenOptions) (fd *Fd, err error) {
	switch ln.addr.(type) {
	case *net.TCPAddr:
		fd, err = ln.listenTCP(options)
		break
	case *net.UnixAddr:
		fd, err = ln.listenUnix(options)
		break
	default:
		err = &net.AddrError{Err: "unexpected address type", Addr: ln.addr.String()}
		break
	}
	return
}

func (ln *Listener) listenTCP(options ListenOptions) (fd *Fd, err error) {
	sock, sockErr := NewSocket(ln.family, syscall.SOCK_STREAM, syscall.IPPROTO_TCP)
	if sockErr != nil {
		err = sockErr
		return
	}
	fd = NewFd(ln.network, sock, ln.family, syscall.SOCK_STREAM)
	// ipv6
	if ln.ipv6only {
		if err = fd.SetIpv6only(true); err != nil {
			_ = fd.Close()
			return
		}
	}
	// reuse addr
	if err = fd.AllowReuseAddr(); err != nil {
		_ = fd.Close()
		return
	}
	// defer accept
	if options.DeferAccept {
		if err = syscall.SetsockoptInt(fd.sock, syscall.IPPROTO_TCP, syscall.TCP_DEFER_ACCEPT, 1); err != nil {
			_ = fd.Close()
			err = os.NewSyscallError("setsockopt", err)
			return
		}
	}
	if err = ln.bindAndListen(fd, options); err != nil {
		_ = fd.Close()
		return
	}
	return
}

func (ln *Listener) listenUnix(options ListenOptions) (fd *Fd, err error) {
	sotype := 0
	switch ln.network {
	case "unix":
		sotype = syscall.SOCK_STREAM
		break
	case "unixpacket":
		sotype = syscall.SOCK_SEQPACKET
		break
	default:
		err = net.UnknownNetworkError(ln.network)
		return
	}
	sock, sockErr := NewSocket(ln.family, sotype, 0)
	if sockErr != nil {
		err = sockErr
		return
	}
	fd = NewFd(ln.network, sock, ln.family, sotype)
	if err = ln.bindAndListen(fd, options); err != nil {
		_ = fd.Close()
		return
	}
	return
}

func (ln *Listener) bindAndListen(fd *Fd, options ListenOptions) (err error) {
	// bind
	if err = fd.Bind(ln.addr); err != nil {
		return
	}
	// listen
	backlog := options.Backlog
	if backlog < 1 {
		backlog = MaxListenerBacklog()
	}
	if err = syscall.Listen(fd.sock, backlog); err != nil {
		err = os.NewSyscallError("listen", err)
		return
	}
	// set socket addr
	if sn, getSockNameErr := syscall.Getsockname(fd.sock); getSockNameErr == nil {
		fd.SetLocalAddr(SockaddrToAddr(ln.network, sn))
	} else {
		fd.SetLocalAddr(ln.addr)
	}
	return
}
