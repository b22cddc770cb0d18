//go:build linux

package tls

import (
	"crypto/tls"
	"github.com/brickingsoft/stls"
	"github.com/brickingsoft/stls/pkg/security"
	"net"
)

// Listener accepts TLS connections. The handshake of an accepted Conn runs
// on its first Read or Write, or on an explicit Handshake.
type Listener struct {
	conn *stls.Connection
	sock *stls.NetSocket
}

// Listen announces on the local network address. config must carry a certificate.
func Listen(network, addr string, config *tls.Config, options ...stls.Option) (*Listener, error) {
	sock, err := stls.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	conn, err := stls.New(security.Server(config), sock, options...)
	if err != nil {
		_ = sock.Close()
		return nil, err
	}
	return &Listener{conn: conn, sock: sock}, nil
}

func (ln *Listener) Accept() (*Conn, error) {
	conn, _, err := ln.conn.Accept()
	if err != nil {
		return nil, err
	}
	return newConn(conn, conn.Socket().(*stls.NetSocket)), nil
}

func (ln *Listener) Addr() net.Addr {
	return ln.sock.LocalAddr()
}

func (ln *Listener) Close() error {
	_ = ln.conn.Close()
	return ln.sock.Close()
}
