//go:build linux

package tls

import (
	"crypto/tls"
	"github.com/brickingsoft/stls"
	"github.com/brickingsoft/stls/pkg/security"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Conn is a TLS connection that owns its socket.
type Conn struct {
	*stls.Connection
	sock *stls.NetSocket

	mu        sync.Mutex
	closing   bool
	closeOnce sync.Once
	closeErr  error
}

func newConn(conn *stls.Connection, sock *stls.NetSocket) *Conn {
	return &Conn{Connection: conn, sock: sock}
}

func (c *Conn) LocalAddr() net.Addr {
	return c.sock.LocalAddr()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.sock.RemoteAddr()
}

// SetTimeout bounds every wait for the socket to become readable or writable.
func (c *Conn) SetTimeout(d time.Duration) {
	c.sock.SetTimeout(d)
}

// ConnectionState reports the negotiated parameters once the handshake finished.
func (c *Conn) ConnectionState() tls.ConnectionState {
	if engine, ok := c.Engine().(*security.Engine); ok {
		return engine.ConnectionState()
	}
	return tls.ConnectionState{}
}

// View returns a handle sharing the connection, e.g. for a buffered reader
// handed to another owner. The connection is released once Close was called
// on the Conn and on every view.
func (c *Conn) View() io.ReadWriteCloser {
	c.Retain()
	return &view{conn: c}
}

// Close releases the engine and closes the socket, or defers both until
// the last open view is closed.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closing = true
	refs := c.Refs()
	c.mu.Unlock()
	if refs > 0 {
		return nil
	}
	return c.release()
}

func (c *Conn) release() error {
	c.closeOnce.Do(func() {
		engineErr := c.Connection.Close()
		sockErr := c.sock.Close()
		if engineErr != nil {
			c.closeErr = engineErr
		} else {
			c.closeErr = sockErr
		}
	})
	return c.closeErr
}

type view struct {
	conn   *Conn
	closed atomic.Bool
}

func (v *view) Read(b []byte) (int, error) {
	if v.closed.Load() {
		return 0, stls.ErrClosed
	}
	return v.conn.Read(b)
}

func (v *view) Write(b []byte) (int, error) {
	if v.closed.Load() {
		return 0, stls.ErrClosed
	}
	return v.conn.Write(b)
}

func (v *view) Close() error {
	if !v.closed.CompareAndSwap(false, true) {
		return nil
	}
	c := v.conn
	c.mu.Lock()
	left := c.Release()
	closing := c.closing
	c.mu.Unlock()
	if left == 0 && closing {
		return c.release()
	}
	return nil
}
