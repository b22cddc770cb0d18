//go:build linux

package tls

import (
	"context"
	"crypto/tls"
	"github.com/brickingsoft/stls"
	"github.com/brickingsoft/stls/pkg/security"
	"strings"
	"time"
)

type Dialer struct {
	Config *tls.Config
	// Timeout bounds each wait while connecting and handshaking. Zero means none.
	Timeout time.Duration
	// KeepAlive is the tcp keep-alive period. Zero uses the system default, negative disables it.
	KeepAlive time.Duration
	Options   []stls.Option
}

func (d *Dialer) Dial(network, addr string) (*Conn, error) {
	return d.DialContext(context.Background(), network, addr)
}

// DialContext connects to addr and completes the handshake. A deadline on
// ctx shortens Timeout.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (*Conn, error) {
	timeout := d.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		remain := time.Until(deadline)
		if remain <= 0 {
			return nil, context.DeadlineExceeded
		}
		if timeout == 0 || remain < timeout {
			timeout = remain
		}
	}
	c, err := dial(network, addr, clientConfig(d.Config, network, addr), timeout, d.KeepAlive, d.Options)
	if err != nil {
		// Don't return c (a typed nil) in an interface.
		return nil, err
	}
	return c, nil
}

// Dial connects to addr over network and completes the client handshake.
func Dial(network, addr string, config *tls.Config, options ...stls.Option) (*Conn, error) {
	d := &Dialer{Config: config, Options: options}
	return d.Dial(network, addr)
}

func dial(network, addr string, config *tls.Config, timeout time.Duration, keepAlive time.Duration, options []stls.Option) (*Conn, error) {
	sock, raddr, err := stls.OpenSocket(network, addr)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(network, "tcp") && keepAlive >= 0 {
		if err = sock.SetKeepAlive(true); err == nil {
			err = sock.SetKeepAlivePeriod(keepAlive)
		}
		if err != nil {
			_ = sock.Close()
			return nil, err
		}
	}
	sock.SetTimeout(timeout)

	conn, err := stls.New(security.Client(config), sock, options...)
	if err != nil {
		_ = sock.Close()
		return nil, err
	}
	if err = conn.Connect(raddr); err != nil {
		_ = conn.Close()
		_ = sock.Close()
		return nil, err
	}
	sock.SetTimeout(0)
	return newConn(conn, sock), nil
}
