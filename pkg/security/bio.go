package security

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"
)

type wouldBlockError struct{}

func (wouldBlockError) Error() string   { return "security: would block" }
func (wouldBlockError) Timeout() bool   { return false }
func (wouldBlockError) Temporary() bool { return true }

// errWouldBlock is temporary, so crypto/tls keeps partial records and lets
// the read be retried.
var errWouldBlock net.Error = wouldBlockError{}

type handshakeState int

const (
	handshakeNeedsOutput handshakeState = iota
	handshakeNeedsInput
	handshakeFinished
)

// bio is the in-memory transport under tls.Conn. Ciphertext from the socket
// is fed into in; ciphertext produced by tls.Conn piles up in out until the
// engine flushes it.
//
// While the handshake goroutine runs, Read parks on cond until input
// arrives. Afterwards Read is non-blocking and returns errWouldBlock.
type bio struct {
	mu           sync.Mutex
	cond         *sync.Cond
	in           bytes.Buffer
	out          bytes.Buffer
	eof          bool
	closed       bool
	blocking     bool
	waiting      bool
	finished     bool
	handshakeErr error
	laddr        net.Addr
	raddr        net.Addr
}

func newBio(laddr net.Addr, raddr net.Addr) *bio {
	b := &bio{
		blocking: true,
		laddr:    laddr,
		raddr:    raddr,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *bio) Read(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.in.Len() == 0 {
		if b.closed {
			return 0, net.ErrClosed
		}
		if b.eof {
			return 0, io.EOF
		}
		if !b.blocking {
			return 0, errWouldBlock
		}
		b.waiting = true
		b.cond.Broadcast()
		b.cond.Wait()
		b.waiting = false
	}
	return b.in.Read(p)
}

func (b *bio) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, net.ErrClosed
	}
	n, _ = b.out.Write(p)
	b.cond.Broadcast()
	return
}

func (b *bio) Close() error {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
	return nil
}

func (b *bio) LocalAddr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.laddr
}

func (b *bio) RemoteAddr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.raddr
}

func (b *bio) setRemoteAddr(addr net.Addr) {
	b.mu.Lock()
	b.raddr = addr
	b.mu.Unlock()
}

func (b *bio) SetDeadline(_ time.Time) error      { return nil }
func (b *bio) SetReadDeadline(_ time.Time) error  { return nil }
func (b *bio) SetWriteDeadline(_ time.Time) error { return nil }

// feed appends ciphertext read from the socket.
func (b *bio) feed(p []byte) {
	b.mu.Lock()
	b.in.Write(p)
	b.cond.Broadcast()
	b.mu.Unlock()
}

// feedEOF records that the socket reached end of file.
func (b *bio) feedEOF() {
	b.mu.Lock()
	b.eof = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// drain hands buffered ciphertext to write until it is gone or write fails.
func (b *bio) drain(write func(p []byte) (int, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.out.Len() > 0 {
		n, err := write(b.out.Bytes())
		if n > 0 {
			b.out.Next(n)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *bio) buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.out.Len()
}

// finish is called by the handshake goroutine when tls.Conn.Handshake returns.
func (b *bio) finish(err error) {
	b.mu.Lock()
	b.finished = true
	b.handshakeErr = err
	b.blocking = false
	b.cond.Broadcast()
	b.mu.Unlock()
}

// awaitHandshake parks until the handshake goroutine needs the engine:
// output to flush, starving for input, or done. Output wins over the rest.
func (b *bio) awaitHandshake() (state handshakeState, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.out.Len() == 0 && !b.finished && !(b.waiting && b.in.Len() == 0) {
		b.cond.Wait()
	}
	switch {
	case b.out.Len() > 0:
		state = handshakeNeedsOutput
	case b.finished:
		state, err = handshakeFinished, b.handshakeErr
	default:
		state = handshakeNeedsInput
	}
	return
}
