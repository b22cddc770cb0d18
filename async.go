package stls

import (
	"context"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/async"
	"net"
)

// Accepted is the outcome of AcceptAsync.
type Accepted struct {
	Conn *Connection
	Addr net.Addr
}

// HandshakeAsync runs Handshake on the executors.
func (conn *Connection) HandshakeAsync(ctx context.Context) async.Future[async.Void] {
	return submit[async.Void](ctx, conn, func() (async.Void, error) {
		return async.Void{}, conn.Handshake()
	})
}

// ConnectAsync runs Connect on the executors.
func (conn *Connection) ConnectAsync(ctx context.Context, addr net.Addr) async.Future[async.Void] {
	return submit[async.Void](ctx, conn, func() (async.Void, error) {
		return async.Void{}, conn.Connect(addr)
	})
}

// RecvAsync runs Recv on the executors. b must not be touched until the future completes.
func (conn *Connection) RecvAsync(ctx context.Context, b []byte) async.Future[int] {
	return submit[int](ctx, conn, func() (int, error) {
		return conn.Recv(b, 0)
	})
}

// WriteAsync runs Write on the executors. b must not be touched until the future completes.
func (conn *Connection) WriteAsync(ctx context.Context, b []byte) async.Future[int] {
	return submit[int](ctx, conn, func() (int, error) {
		return conn.Write(b)
	})
}

// AcceptAsync runs Accept on the executors.
func (conn *Connection) AcceptAsync(ctx context.Context) async.Future[Accepted] {
	return submit[Accepted](ctx, conn, func() (Accepted, error) {
		accepted, addr, err := conn.Accept()
		if err != nil {
			return Accepted{}, err
		}
		return Accepted{Conn: accepted, Addr: addr}, nil
	})
}

func (conn *Connection) executors() (rxp.Executors, error) {
	if conn.options.Executors != nil {
		return conn.options.Executors, nil
	}
	return Executors()
}

func submit[R any](ctx context.Context, conn *Connection, fn func() (R, error)) (future async.Future[R]) {
	exec, execsErr := conn.executors()
	if execsErr != nil {
		future = async.FailedImmediately[R](ctx, execsErr)
		return
	}
	ctx = rxp.With(ctx, exec)
	promise, promiseErr := async.Make[R](ctx, async.WithWait())
	if promiseErr != nil {
		future = async.FailedImmediately[R](ctx, promiseErr)
		return
	}
	future = promise.Future()
	execErr := exec.Execute(ctx, func() {
		r, err := fn()
		if err != nil {
			promise.Fail(err)
			return
		}
		promise.Succeed(r)
	})
	if execErr != nil {
		promise.Fail(execErr)
	}
	return
}
