package stls

import (
	"net"
	"time"
)

// Socket is the raw, non-blocking socket a Connection rides on.
// The Connection never closes it and only reads its timeout.
type Socket interface {
	Fd() int
	// Timeout bounds each wait for readiness. Zero means no timeout.
	Timeout() time.Duration
}

// Acceptor is a listening Socket. Accept fails with syscall.EAGAIN (or
// ErrWantRead) when no connection is pending.
type Acceptor interface {
	Socket
	Accept() (sock Socket, addr net.Addr, err error)
}
