//go:build linux

package stls

import (
	"github.com/brickingsoft/stls/pkg/sys"
	"net"
	"sync/atomic"
	"syscall"
	"time"
)

// NetSocket is a non-blocking stream socket implementing Socket and Acceptor.
type NetSocket struct {
	fd      *sys.Fd
	timeout atomic.Int64
}

// Listen opens a listening tcp or unix socket.
func Listen(network string, address string) (sock *NetSocket, err error) {
	ln, lnErr := sys.NewListener(network, address)
	if lnErr != nil {
		err = newOpErr(opAccept, "listen failed", lnErr)
		return
	}
	fd, listenErr := ln.Listen(sys.ListenOptions{})
	if listenErr != nil {
		err = newOpErr(opAccept, "listen failed", listenErr)
		return
	}
	sock = &NetSocket{fd: fd}
	return
}

// OpenSocket opens an unconnected socket able to reach address and returns
// the resolved address to hand to Connection.Connect.
func OpenSocket(network string, address string) (sock *NetSocket, raddr net.Addr, err error) {
	addr, family, ipv6only, resolveErr := sys.ResolveAddr(network, address)
	if resolveErr != nil {
		err = newOpErr(opConnect, "open socket failed", resolveErr)
		return
	}
	sotype := syscall.SOCK_STREAM
	if network == "unixpacket" {
		sotype = syscall.SOCK_SEQPACKET
	}
	proto := 0
	if family != syscall.AF_UNIX {
		proto = syscall.IPPROTO_TCP
	}
	s, sockErr := sys.NewSocket(family, sotype, proto)
	if sockErr != nil {
		err = newOpErr(opConnect, "open socket failed", sockErr)
		return
	}
	fd := sys.NewFd(network, s, family, sotype)
	if ipv6only {
		if err = fd.SetIpv6only(true); err != nil {
			_ = fd.Close()
			err = newOpErr(opConnect, "open socket failed", err)
			return
		}
	}
	_ = fd.SetNoDelay(true)
	sock = &NetSocket{fd: fd}
	raddr = addr
	return
}

func (s *NetSocket) Fd() int {
	return s.fd.Socket()
}

func (s *NetSocket) Timeout() time.Duration {
	return time.Duration(s.timeout.Load())
}

// SetTimeout bounds every readiness wait of connections using the socket.
// Zero or negative removes the bound.
func (s *NetSocket) SetTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.timeout.Store(int64(d))
}

// Accept returns a pending connection or syscall.EAGAIN. The accepted socket
// inherits the listener's timeout.
func (s *NetSocket) Accept() (Socket, net.Addr, error) {
	fd, err := s.fd.Accept()
	if err != nil {
		return nil, nil, err
	}
	_ = fd.SetNoDelay(true)
	accepted := &NetSocket{fd: fd}
	accepted.timeout.Store(s.timeout.Load())
	return accepted, fd.RemoteAddr(), nil
}

func (s *NetSocket) Read(b []byte) (int, error) {
	return s.fd.Read(b)
}

func (s *NetSocket) Write(b []byte) (int, error) {
	return s.fd.Write(b)
}

// Connect starts a non-blocking connect; see sys.Fd.Connect.
func (s *NetSocket) Connect(addr net.Addr) error {
	return s.fd.Connect(addr)
}

// ConnectResult reports a pending Connect; syscall.EINPROGRESS while unsettled.
func (s *NetSocket) ConnectResult() error {
	return s.fd.ConnectResult()
}

func (s *NetSocket) LocalAddr() net.Addr {
	return s.fd.LocalAddr()
}

func (s *NetSocket) RemoteAddr() net.Addr {
	return s.fd.RemoteAddr()
}

func (s *NetSocket) SetKeepAlive(keepalive bool) error {
	return s.fd.SetKeepAlive(keepalive)
}

func (s *NetSocket) SetKeepAlivePeriod(d time.Duration) error {
	return s.fd.SetKeepAlivePeriod(d)
}

func (s *NetSocket) SetLinger(sec int) error {
	return s.fd.SetLinger(sec)
}

func (s *NetSocket) CloseWrite() error {
	return s.fd.CloseWrite()
}

func (s *NetSocket) Close() error {
	return s.fd.Close()
}
