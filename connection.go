package stls

import (
	"github.com/brickingsoft/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// Connection adapts an Engine so that every step which would block only
// suspends the calling goroutine on the Waiter and is then retried.
//
// A Connection supports one reader and one writer at a time; concurrent
// calls in the same direction need external serialization.
type Connection struct {
	id      string
	sock    Socket
	builder EngineBuilder
	engine  Engine
	options Options
	logger  zerolog.Logger
	refs    atomic.Int64
	parked  atomic.Int64
	closed  atomic.Bool
}

// New builds an engine for sock with builder and wraps both.
// The socket stays owned by the caller.
func New(builder EngineBuilder, sock Socket, options ...Option) (conn *Connection, err error) {
	if builder == nil {
		err = ErrNilEngineBuilder
		return
	}
	if sock == nil {
		err = ErrNilSocket
		return
	}
	opts, optsErr := newOptions(options)
	if optsErr != nil {
		err = newOpErr(opNew, "new connection failed", optsErr)
		return
	}
	conn, err = newConnection(builder, sock, opts)
	return
}

func newConnection(builder EngineBuilder, sock Socket, options Options) (conn *Connection, err error) {
	engine, buildErr := builder(sock)
	if buildErr != nil {
		err = newOpErr(opNew, "build engine failed", buildErr)
		return
	}
	if engine == nil {
		err = ErrNilEngine
		return
	}
	id := uuid.NewString()
	conn = &Connection{
		id:      id,
		sock:    sock,
		builder: builder,
		engine:  engine,
		options: options,
		logger:  options.Logger.With().Str("conn", id).Logger(),
	}
	return
}

// ID identifies the connection in log events.
func (conn *Connection) ID() string {
	return conn.id
}

func (conn *Connection) Socket() Socket {
	return conn.sock
}

func (conn *Connection) Engine() Engine {
	return conn.engine
}

// Pending returns the decrypted bytes Recv can return without touching the socket.
func (conn *Connection) Pending() int {
	return conn.engine.Pending()
}

// Handshake drives the TLS handshake to completion.
func (conn *Connection) Handshake() (err error) {
	_, err = retry(conn, opHandshake, func() (struct{}, error) {
		return struct{}{}, conn.engine.Handshake()
	})
	return
}

// Connect connects to addr and drives the handshake to completion.
func (conn *Connection) Connect(addr net.Addr) (err error) {
	_, err = retry(conn, opConnect, func() (struct{}, error) {
		return struct{}{}, conn.engine.Connect(addr)
	})
	return
}

// Send transmits b and returns the number of bytes the engine accepted.
// A transport failure that moved no data is not an error for an empty b.
func (conn *Connection) Send(b []byte, flags int) (n int, err error) {
	n, err = retry(conn, opSend, func() (int, error) {
		return conn.engine.Send(b, flags)
	})
	if err != nil && len(b) == 0 && isNoDataTransferred(err) {
		conn.suppressed(opSend, benignEmptySend, err)
		n, err = 0, nil
	}
	return
}

// Recv reads at most len(b) decrypted bytes. Bytes already buffered in the
// engine are returned without waiting. A clean peer shutdown yields 0, nil.
func (conn *Connection) Recv(b []byte, flags int) (n int, err error) {
	if pending := conn.engine.Pending(); pending > 0 {
		n, err = conn.engine.Recv(b[:min(pending, len(b))], flags)
		return
	}
	n, err = retry(conn, opRecv, func() (int, error) {
		return conn.engine.Recv(b, flags)
	})
	if err != nil && errors.Is(err, ErrZeroReturn) {
		conn.suppressed(opRecv, benignZeroReturn, err)
		n, err = 0, nil
	}
	return
}

// Read is Recv without flags. The end of the stream is reported as io.EOF.
func (conn *Connection) Read(b []byte) (n int, err error) {
	n, err = conn.Recv(b, 0)
	if n == 0 && err == nil && len(b) > 0 {
		err = io.EOF
	}
	return
}

// Write sends all of b, summing partial sends. It stops at the first error
// and returns the bytes sent so far.
func (conn *Connection) Write(b []byte) (n int, err error) {
	for n < len(b) {
		sent, sendErr := conn.Send(b[n:], 0)
		n += sent
		if sendErr != nil {
			err = sendErr
			return
		}
		if sent == 0 {
			err = io.ErrShortWrite
			return
		}
	}
	return
}

// Accept waits for an inbound connection on a listening socket and wraps it
// with the listener's engine builder and options.
func (conn *Connection) Accept() (accepted *Connection, addr net.Addr, err error) {
	acceptor, ok := conn.sock.(Acceptor)
	if !ok {
		err = ErrNotAcceptor
		return
	}
	type acceptResult struct {
		sock Socket
		addr net.Addr
	}
	result, acceptErr := retry(conn, opAccept, func() (acceptResult, error) {
		sock, raddr, err := acceptor.Accept()
		if err != nil && isAgain(err) {
			err = ErrWantRead
		}
		return acceptResult{sock: sock, addr: raddr}, err
	})
	if acceptErr != nil {
		err = acceptErr
		return
	}
	accepted, err = newConnection(conn.builder, result.sock, conn.options)
	if err != nil {
		// never handed out, so nobody else can close it
		if closer, isCloser := result.sock.(io.Closer); isCloser {
			_ = closer.Close()
		}
		accepted = nil
		return
	}
	addr = result.addr
	return
}

// Shutdown sends a close_notify when the engine supports it.
func (conn *Connection) Shutdown() (err error) {
	shutdowner, ok := conn.engine.(Shutdowner)
	if !ok {
		err = ErrShutdownNotSupport
		return
	}
	_, err = retry(conn, opShutdown, func() (struct{}, error) {
		return struct{}{}, shutdowner.Shutdown()
	})
	return
}

// Close releases the engine and wakes goroutines parked in Recv or Send,
// which then fail with ErrClosed. The socket is left open for its owner.
func (conn *Connection) Close() (err error) {
	if !conn.closed.CompareAndSwap(false, true) {
		return
	}
	if detacher, ok := conn.options.Waiter.(Detacher); ok {
		fd := conn.sock.Fd()
		detacher.Detach(fd)
		// a wait that passed its closed check just before the swap may register late
		for conn.parked.Load() > 0 {
			time.Sleep(time.Millisecond)
			detacher.Detach(fd)
		}
	}
	if closer, ok := conn.engine.(io.Closer); ok {
		if closeErr := closer.Close(); closeErr != nil {
			err = newOpErr(opClose, "close engine failed", closeErr)
		}
	}
	return
}

// Retain records one more file-like view aliasing the connection.
func (conn *Connection) Retain() int64 {
	return conn.refs.Add(1)
}

// Release drops a view recorded by Retain and returns the views left.
func (conn *Connection) Release() int64 {
	for {
		refs := conn.refs.Load()
		if refs <= 0 {
			return 0
		}
		if conn.refs.CompareAndSwap(refs, refs-1) {
			return refs - 1
		}
	}
}

// Refs returns the number of file-like views currently aliasing the connection.
func (conn *Connection) Refs() int64 {
	return conn.refs.Load()
}
