//go:build linux

package sys

import (
	"golang.org/x/sys/unix"
	"net"
	"os"
	"syscall"
	"time"
)

func NewFd(network string, sock int, family int, sotype int) (fd *Fd) {
	fd = &Fd{
		sock:   sock,
		family: family,
		sotype: sotype,
		net:    network,
		laddr:  nil,
		raddr:  nil,
	}
	return
}

// Fd is a non-blocking socket handle. Every I/O method returns syscall.EAGAIN
// instead of parking the thread.
type Fd struct {
	sock   int
	family int
	sotype int
	net    string
	laddr  net.Addr
	raddr  net.Addr
}

func (fd *Fd) Name() string {
	var ls, rs string
	if fd.laddr != nil {
		ls = fd.laddr.String()
	}
	if fd.raddr != nil {
		rs = fd.raddr.String()
	}
	return fd.net + ":" + ls + "->" + rs
}

func (fd *Fd) Socket() int {
	return fd.sock
}

func (fd *Fd) Family() int {
	return fd.family
}

func (fd *Fd) SocketType() int {
	return fd.sotype
}

func (fd *Fd) Net() string {
	return fd.net
}

func (fd *Fd) LocalAddr() net.Addr {
	return fd.laddr
}

func (fd *Fd) SetLocalAddr(addr net.Addr) {
	fd.laddr = addr
}

func (fd *Fd) LoadLocalAddr() (err error) {
	sa, saErr := syscall.Getsockname(fd.sock)
	if saErr != nil {
		err = os.NewSyscallError("getsockname", saErr)
		return
	}
	fd.laddr = SockaddrToAddr(fd.net, sa)
	return
}

func (fd *Fd) RemoteAddr() net.Addr {
	return fd.raddr
}

func (fd *Fd) SetRemoteAddr(addr net.Addr) {
	fd.raddr = addr
}

func (fd *Fd) LoadRemoteAddr() (err error) {
	sa, saErr := syscall.Getpeername(fd.sock)
	if saErr != nil {
		err = os.NewSyscallError("getpeername", saErr)
		return
	}
	fd.raddr = SockaddrToAddr(fd.net, sa)
	return
}

func (fd *Fd) SetIpv6only(ipv6only bool) error {
	if fd.family == syscall.AF_INET6 {
		if err := syscall.SetsockoptInt(fd.sock, syscall.IPPROTO_IPV6, syscall.IPV6_V6ONLY, boolint(ipv6only)); err != nil {
			return os.NewSyscallError("setsockopt", err)
		}
	}
	return nil
}

func (fd *Fd) AllowReuseAddr() error {
	if err := syscall.SetsockoptInt(fd.sock, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	return nil
}

func (fd *Fd) Bind(addr net.Addr) error {
	sa, saErr := AddrToSockaddr(addr)
	if saErr != nil {
		return saErr
	}
	if err := syscall.Bind(fd.sock, sa); err != nil {
		return os.NewSyscallError("bind", err)
	}
	return nil
}

// Accept takes one pending connection. The accepted socket is non-blocking
// and carries both addresses.
func (fd *Fd) Accept() (cfd *Fd, err error) {
	for {
		nfd, sa, acceptErr := unix.Accept4(fd.sock, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if acceptErr != nil {
			switch acceptErr {
			case unix.EINTR, unix.ECONNABORTED:
				continue
			case unix.EAGAIN:
				err = syscall.EAGAIN
				return
			default:
				err = os.NewSyscallError("accept4", acceptErr)
				return
			}
		}
		cfd = NewFd(fd.net, nfd, fd.family, fd.sotype)
		if err = cfd.LoadLocalAddr(); err != nil {
			_ = cfd.Close()
			cfd = nil
			return
		}
		if rsa, rsaErr := unixToSyscallSockaddr(sa); rsaErr == nil {
			cfd.SetRemoteAddr(SockaddrToAddr(fd.net, rsa))
		} else {
			_ = cfd.LoadRemoteAddr()
		}
		return
	}
}

// Connect starts a non-blocking connect. syscall.EINPROGRESS means the result
// arrives later through ConnectResult once the socket is writable.
func (fd *Fd) Connect(addr net.Addr) (err error) {
	sa, saErr := AddrToSockaddr(addr)
	if saErr != nil {
		err = saErr
		return
	}
	for {
		err = syscall.Connect(fd.sock, sa)
		if err == syscall.EINTR {
			continue
		}
		break
	}
	switch err {
	case nil, syscall.EISCONN:
		err = nil
		fd.raddr = addr
		_ = fd.LoadLocalAddr()
		return
	case syscall.EINPROGRESS, syscall.EALREADY:
		fd.raddr = addr
		return
	default:
		err = os.NewSyscallError("connect", err)
		return
	}
}

// ConnectResult reports the outcome of a pending Connect.
func (fd *Fd) ConnectResult() (err error) {
	soerr, getErr := syscall.GetsockoptInt(fd.sock, syscall.SOL_SOCKET, syscall.SO_ERROR)
	if getErr != nil {
		err = os.NewSyscallError("getsockopt", getErr)
		return
	}
	switch errno := syscall.Errno(soerr); errno {
	case 0, syscall.EISCONN:
		_ = fd.LoadLocalAddr()
		return
	case syscall.EINPROGRESS, syscall.EALREADY, syscall.EINTR:
		err = syscall.EINPROGRESS
		return
	default:
		err = os.NewSyscallError("connect", errno)
		return
	}
}

func (fd *Fd) Read(b []byte) (n int, err error) {
	for {
		n, err = syscall.Read(fd.sock, b)
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

func (fd *Fd) Write(b []byte) (n int, err error) {
	for {
		n, err = syscall.Write(fd.sock, b)
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

func (fd *Fd) Close() error {
	return syscall.Close(fd.sock)
}

func (fd *Fd) CloseRead() error {
	return syscall.Shutdown(fd.sock, syscall.SHUT_RD)
}

func (fd *Fd) CloseWrite() error {
	return syscall.Shutdown(fd.sock, syscall.SHUT_WR)
}

func (fd *Fd) SetNoDelay(noDelay bool) error {
	if fd.sotype == syscall.SOCK_STREAM && fd.family != syscall.AF_UNIX {
		if err := syscall.SetsockoptInt(fd.sock, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, boolint(noDelay)); err != nil {
			return os.NewSyscallError("setsockopt", err)
		}
	}
	return nil
}

func (fd *Fd) SetLinger(sec int) error {
	var l syscall.Linger
	if sec >= 0 {
		l.Onoff = 1
		l.Linger = int32(sec)
	} else {
		l.Onoff = 0
		l.Linger = 0
	}
	if err := syscall.SetsockoptLinger(fd.sock, syscall.SOL_SOCKET, syscall.SO_LINGER, &l); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	return nil
}

const (
	// defaultTCPKeepAliveIdle is a default constant value for TCP_KEEPIDLE.
	// See go.dev/issue/31510 for details.
	defaultTCPKeepAliveIdle = 15 * time.Second
)

func roundDurationUp(d time.Duration, to time.Duration) time.Duration {
	return (d + to - 1) / to
}

func (fd *Fd) SetKeepAlive(keepalive bool) error {
	if err := syscall.SetsockoptInt(fd.sock, syscall.SOL_SOCKET, syscall.SO_KEEPALIVE, boolint(keepalive)); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	return nil
}

func (fd *Fd) SetKeepAlivePeriod(d time.Duration) error {
	if d == 0 {
		d = defaultTCPKeepAliveIdle
	} else if d < 0 {
		return nil
	}
	secs := int(roundDurationUp(d, time.Second))
	if err := syscall.SetsockoptInt(fd.sock, syscall.IPPROTO_TCP, syscall.TCP_KEEPIDLE, secs); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	return nil
}

func unixToSyscallSockaddr(sa unix.Sockaddr) (syscall.Sockaddr, error) {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return &syscall.SockaddrInet4{Port: s.Port, Addr: s.Addr}, nil
	case *unix.SockaddrInet6:
		return &syscall.SockaddrInet6{Port: s.Port, ZoneId: s.ZoneId, Addr: s.Addr}, nil
	case *unix.SockaddrUnix:
		return &syscall.SockaddrUnix{Name: s.Name}, nil
	default:
		return nil, syscall.EAFNOSUPPORT
	}
}
