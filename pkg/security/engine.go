//go:build unix

package security

import (
	"crypto/tls"
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/stls"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
)

var (
	ErrNilConfig          = errors.Define("tls config is nil")
	ErrMissingCertificate = errors.Define("server tls config has no certificate")
	ErrEarlyShutdown      = errors.Define("shutdown before handshake completed")
	errEmptyWrite         = errors.Define("no data to write")
)

const (
	// ciphertext read from the socket per fill
	readBufferSize = 16 * 1024
	// plaintext decrypted per record read
	plainBufferSize = 16 * 1024
	// plaintext encrypted per Send, so one Send never buffers unbounded ciphertext
	maxSendSize = 64 * 1024
)

// Client returns a builder of client side engines.
// When config has neither ServerName nor InsecureSkipVerify, the host of the
// address handed to Connect is used as ServerName.
func Client(config *tls.Config) stls.EngineBuilder {
	return func(sock stls.Socket) (stls.Engine, error) {
		engine, err := NewEngine(sock, config, true)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

// Server returns a builder of server side engines.
func Server(config *tls.Config) stls.EngineBuilder {
	return func(sock stls.Socket) (stls.Engine, error) {
		engine, err := NewEngine(sock, config, false)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

// Engine drives a crypto/tls connection over a non-blocking socket.
// Every method returns stls.ErrWantRead or stls.ErrWantWrite instead of blocking.
//
// At most one goroutine may read and one may write at a time.
type Engine struct {
	sock     stls.Socket
	fd       int
	config   *tls.Config
	isClient bool
	bio      *bio
	conn     *tls.Conn

	connecting bool
	connected  bool

	handshakeMu      sync.Mutex
	handshakeStarted bool
	handshakeDone    atomic.Bool
	handshakeErr     error

	rbuf       []byte
	plainBuf   []byte
	plain      []byte
	zeroReturn bool

	sendPending int

	closeNotifySent bool
	closed          atomic.Bool
}

func NewEngine(sock stls.Socket, config *tls.Config, isClient bool) (*Engine, error) {
	if sock == nil {
		return nil, stls.ErrNilSocket
	}
	if config == nil {
		return nil, ErrNilConfig
	}
	if !isClient && len(config.Certificates) == 0 && config.GetCertificate == nil && config.GetConfigForClient == nil {
		return nil, ErrMissingCertificate
	}
	var laddr, raddr net.Addr
	if addressed, ok := sock.(interface {
		LocalAddr() net.Addr
		RemoteAddr() net.Addr
	}); ok {
		laddr, raddr = addressed.LocalAddr(), addressed.RemoteAddr()
	}
	return &Engine{
		sock:     sock,
		fd:       sock.Fd(),
		config:   config,
		isClient: isClient,
		bio:      newBio(laddr, raddr),
		rbuf:     make([]byte, readBufferSize),
		plainBuf: make([]byte, plainBufferSize),
	}, nil
}

// ConnectionState is valid once Handshake has returned nil.
func (e *Engine) ConnectionState() tls.ConnectionState {
	if e.conn == nil {
		return tls.ConnectionState{}
	}
	return e.conn.ConnectionState()
}

func (e *Engine) Pending() int {
	return len(e.plain)
}

func (e *Engine) Connect(addr net.Addr) (err error) {
	if !e.connected {
		if e.connecting {
			err = e.connectResult()
		} else {
			err = e.connect(addr)
		}
		if err != nil {
			return
		}
		e.connecting = false
		e.connected = true
	}
	err = e.Handshake()
	return
}

// Handshake advances the handshake as far as the socket allows.
// Once finished it keeps returning the handshake's outcome.
func (e *Engine) Handshake() (err error) {
	if e.handshakeDone.Load() {
		return e.handshakeErr
	}
	e.handshakeMu.Lock()
	defer e.handshakeMu.Unlock()
	if e.handshakeDone.Load() {
		return e.handshakeErr
	}
	if e.closed.Load() {
		return net.ErrClosed
	}
	if !e.handshakeStarted {
		e.startHandshake()
	}
	for {
		if err = e.flush(); err != nil {
			return
		}
		state, stateErr := e.bio.awaitHandshake()
		switch state {
		case handshakeNeedsOutput:
			continue
		case handshakeNeedsInput:
			if err = e.fill(); err != nil {
				return
			}
			break
		case handshakeFinished:
			e.handshakeErr = stateErr
			e.handshakeDone.Store(true)
			err = stateErr
			return
		}
	}
}

func (e *Engine) startHandshake() {
	e.handshakeStarted = true
	config := e.config
	if e.isClient {
		if config.ServerName == "" && !config.InsecureSkipVerify {
			if host := hostOf(e.bio.RemoteAddr()); host != "" {
				config = config.Clone()
				config.ServerName = host
			}
		}
		e.conn = tls.Client(e.bio, config)
	} else {
		e.conn = tls.Server(e.bio, config)
	}
	go func(conn *tls.Conn, b *bio) {
		b.finish(conn.Handshake())
	}(e.conn, e.bio)
}

func hostOf(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.TCPAddr:
		if a.IP != nil {
			return a.IP.String()
		}
	}
	return ""
}

// Send encrypts b and writes the records to the socket.
//
// When the records cannot be written completely Send returns
// stls.ErrWantWrite; the next call, which must pass the same b, finishes
// writing them and reports the bytes they carried.
func (e *Engine) Send(b []byte, _ int) (n int, err error) {
	if err = e.Handshake(); err != nil {
		return
	}
	if err = e.flush(); err != nil {
		return
	}
	if e.sendPending > 0 {
		n, e.sendPending = e.sendPending, 0
		return
	}
	if len(b) == 0 {
		err = stls.NewSyscallError(-1, errEmptyWrite)
		return
	}
	if len(b) > maxSendSize {
		b = b[:maxSendSize]
	}
	written, writeErr := e.conn.Write(b)
	if writeErr != nil {
		err = writeErr
		return
	}
	if err = e.flush(); err != nil {
		if errors.Is(err, stls.ErrWantWrite) {
			e.sendPending = written
		}
		return
	}
	n = written
	return
}

// Recv copies decrypted bytes into b. Plaintext left over from a previous
// record is served first. syscall.MSG_PEEK in flags leaves the bytes staged.
func (e *Engine) Recv(b []byte, flags int) (n int, err error) {
	if err = e.Handshake(); err != nil {
		return
	}
	peek := flags&syscall.MSG_PEEK != 0
	if len(e.plain) > 0 {
		n = e.take(b, peek)
		return
	}
	if e.zeroReturn {
		err = stls.ErrZeroReturn
		return
	}
	if len(b) == 0 {
		return
	}
	if err = e.flushPending(); err != nil {
		return
	}
	for {
		read, readErr := e.conn.Read(e.plainBuf)
		if read > 0 {
			e.plain = e.plainBuf[:read]
			if readErr == io.EOF {
				e.zeroReturn = true
			}
			n = e.take(b, peek)
			// post handshake messages may have queued records, the next call flushes what is left
			_ = e.flush()
			return
		}
		switch {
		case readErr == nil:
			continue
		case readErr == io.EOF:
			e.zeroReturn = true
			err = stls.ErrZeroReturn
			return
		case readErr == io.ErrUnexpectedEOF:
			err = stls.NewSyscallError(-1, readErr)
			return
		case errors.Is(readErr, errWouldBlock):
			if err = e.flushPending(); err != nil {
				return
			}
			if err = e.fill(); err != nil {
				return
			}
			break
		default:
			err = readErr
			return
		}
	}
}

func (e *Engine) take(b []byte, peek bool) (n int) {
	n = copy(b, e.plain)
	if !peek {
		e.plain = e.plain[n:]
	}
	return
}

// Shutdown sends close_notify. It does not wait for the peer's.
func (e *Engine) Shutdown() (err error) {
	if !e.handshakeDone.Load() || e.handshakeErr != nil {
		err = ErrEarlyShutdown
		return
	}
	if !e.closeNotifySent {
		e.closeNotifySent = true
		if err = e.conn.CloseWrite(); err != nil {
			return
		}
	}
	err = e.flush()
	return
}

// Close releases the engine and stops a running handshake. The socket stays open.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.bio.Close()
}

// flush writes buffered ciphertext to the socket.
func (e *Engine) flush() error {
	err := e.bio.drain(e.write)
	if err == nil {
		return nil
	}
	if isAgain(err) {
		return stls.ErrWantWrite
	}
	return socketError("write", err)
}

// flushPending is flush for the read side. Ciphertext that does not fit
// into the socket stays buffered for the writer, so a full send buffer
// never turns a read into a write wait.
func (e *Engine) flushPending() error {
	if err := e.flush(); err != nil && !errors.Is(err, stls.ErrWantWrite) {
		return err
	}
	return nil
}

// fill reads one chunk of ciphertext from the socket into the bio.
func (e *Engine) fill() error {
	n, err := e.read(e.rbuf)
	if err != nil {
		if isAgain(err) {
			return stls.ErrWantRead
		}
		return socketError("read", err)
	}
	if n == 0 {
		e.bio.feedEOF()
		return nil
	}
	e.bio.feed(e.rbuf[:n])
	return nil
}
