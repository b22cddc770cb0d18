package stls

import (
	"context"
	"errors"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/async"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"testing"
)

func newAsyncConnection(t *testing.T, engine Engine, sock Socket) (*Connection, *fakeWaiter) {
	t.Helper()
	exec, err := rxp.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = exec.Close()
	})
	waiter := &fakeWaiter{}
	conn, err := New(builderOf(engine), sock, WithWaiter(waiter), WithExecutors(exec))
	require.NoError(t, err)
	return conn, waiter
}

func TestConnection_HandshakeAsync(t *testing.T) {
	engine := newFakeEngine()
	engine.handshake = errs(ErrWantRead, ErrWantWrite, nil)
	conn, waiter := newAsyncConnection(t, engine, &fakeSocket{fd: 7})

	_, err := async.AwaitableFuture(conn.HandshakeAsync(context.Background())).Await()
	require.NoError(t, err)
	reads, writes := waiter.count()
	assert.Equal(t, 1, reads)
	assert.Equal(t, 1, writes)
}

func TestConnection_ConnectAsyncError(t *testing.T) {
	engine := newFakeEngine()
	engineErr := errors.New("connection refused")
	engine.connect = errs(ErrWantWrite, engineErr)
	conn, _ := newAsyncConnection(t, engine, &fakeSocket{fd: 7})

	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
	_, err := async.AwaitableFuture(conn.ConnectAsync(context.Background(), addr)).Await()
	assert.ErrorIs(t, err, engineErr)
}

func TestConnection_RecvAndWriteAsync(t *testing.T) {
	engine := newFakeEngine()
	engine.send = scripted(result{n: 2})
	engine.recv = scripted(result{err: ErrWantRead}, result{n: 3})
	conn, _ := newAsyncConnection(t, engine, &fakeSocket{fd: 7})
	ctx := context.Background()

	n, err := async.AwaitableFuture(conn.WriteAsync(ctx, []byte("hello"))).Await()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = async.AwaitableFuture(conn.RecvAsync(ctx, make([]byte, 8))).Await()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestConnection_AcceptAsync(t *testing.T) {
	raddr := &net.TCPAddr{IP: net.IPv4(10, 0, 0, 2), Port: 5000}
	listener := &fakeAcceptor{fakeSocket: fakeSocket{fd: 8}}
	listener.accept = func() (Socket, net.Addr, error) {
		return &fakeSocket{fd: 9}, raddr, nil
	}
	conn, _ := newAsyncConnection(t, newFakeEngine(), listener)

	accepted, err := async.AwaitableFuture(conn.AcceptAsync(context.Background())).Await()
	require.NoError(t, err)
	require.NotNil(t, accepted.Conn)
	assert.Equal(t, raddr, accepted.Addr)
	assert.Equal(t, 9, accepted.Conn.Socket().Fd())

	conn, _ = newAsyncConnection(t, newFakeEngine(), &fakeSocket{fd: 7})
	_, err = async.AwaitableFuture(conn.AcceptAsync(context.Background())).Await()
	assert.ErrorIs(t, err, ErrNotAcceptor)
}
