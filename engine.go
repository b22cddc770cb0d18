package stls

import (
	"net"
)

// Engine is one TLS session bound to a non-blocking socket.
//
// Every step may fail with ErrWantRead or ErrWantWrite when the socket is
// not ready; the step is then retried with the same arguments once the
// socket is ready. Recv reports a clean peer shutdown with ErrZeroReturn.
// Transport failures are reported as *SyscallError. Any other error belongs
// to the engine and is passed to the caller untouched.
type Engine interface {
	// Handshake advances the TLS handshake until it is complete.
	Handshake() error
	// Connect connects the socket to addr and performs the handshake.
	Connect(addr net.Addr) error
	// Send encrypts and transmits b, returning the plaintext bytes accepted.
	Send(b []byte, flags int) (n int, err error)
	// Recv reads decrypted bytes into b.
	Recv(b []byte, flags int) (n int, err error)
	// Pending returns the number of decrypted bytes buffered inside the engine.
	Pending() int
}

// Shutdowner is implemented by engines able to send a close_notify.
type Shutdowner interface {
	Shutdown() error
}

// EngineBuilder builds a new Engine for sock. It plays the role of a TLS
// context: a listener hands its builder to every accepted connection.
type EngineBuilder func(sock Socket) (engine Engine, err error)
