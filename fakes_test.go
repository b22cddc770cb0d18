package stls

import (
	"errors"
	"net"
	"sync"
	"time"
)

type result struct {
	n   int
	err error
}

// script hands out results in order and repeats the last one.
type script struct {
	mu      sync.Mutex
	results []result
	calls   int
}

func scripted(results ...result) *script {
	return &script{results: results}
}

func (s *script) next() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if len(s.results) == 0 {
		return 0, nil
	}
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i].n, s.results[i].err
}

func (s *script) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func errs(errors ...error) *script {
	s := &script{}
	for _, err := range errors {
		s.results = append(s.results, result{err: err})
	}
	return s
}

type fakeEngine struct {
	handshake *script
	connect   *script
	send      *script
	recv      *script
	shutdown  *script
	pending   int
	closed    int
	closeErr  error

	sendLens []int
	recvLens []int
	addrs    []net.Addr
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		handshake: scripted(),
		connect:   scripted(),
		send:      scripted(),
		recv:      scripted(),
		shutdown:  scripted(),
	}
}

func (e *fakeEngine) Handshake() error {
	_, err := e.handshake.next()
	return err
}

func (e *fakeEngine) Connect(addr net.Addr) error {
	e.addrs = append(e.addrs, addr)
	_, err := e.connect.next()
	return err
}

func (e *fakeEngine) Send(b []byte, _ int) (int, error) {
	e.sendLens = append(e.sendLens, len(b))
	n, err := e.send.next()
	if n > len(b) {
		n = len(b)
	}
	return n, err
}

func (e *fakeEngine) Recv(b []byte, _ int) (int, error) {
	e.recvLens = append(e.recvLens, len(b))
	n, err := e.recv.next()
	if n > len(b) {
		n = len(b)
	}
	if e.pending > 0 {
		e.pending -= n
	}
	return n, err
}

func (e *fakeEngine) Pending() int {
	return e.pending
}

// fakeShutdownEngine adds Shutdown and Close to fakeEngine.
type fakeShutdownEngine struct {
	*fakeEngine
}

func (e *fakeShutdownEngine) Shutdown() error {
	_, err := e.shutdown.next()
	return err
}

func (e *fakeShutdownEngine) Close() error {
	e.closed++
	return e.closeErr
}

type fakeSocket struct {
	fd      int
	timeout time.Duration
}

func (s *fakeSocket) Fd() int {
	return s.fd
}

func (s *fakeSocket) Timeout() time.Duration {
	return s.timeout
}

type fakeAcceptor struct {
	fakeSocket
	accept func() (Socket, net.Addr, error)
}

func (s *fakeAcceptor) Accept() (Socket, net.Addr, error) {
	return s.accept()
}

type closableSocket struct {
	fakeSocket
	closed int
}

func (s *closableSocket) Close() error {
	s.closed++
	return nil
}

type wait struct {
	fd       int
	readable bool
	timeout  time.Duration
}

type fakeWaiter struct {
	mu     sync.Mutex
	waits  []wait
	err    error
	onWait func()
}

func (w *fakeWaiter) WaitReadable(fd int, timeout time.Duration) error {
	return w.record(wait{fd: fd, readable: true, timeout: timeout})
}

func (w *fakeWaiter) WaitWritable(fd int, timeout time.Duration) error {
	return w.record(wait{fd: fd, readable: false, timeout: timeout})
}

func (w *fakeWaiter) record(wt wait) error {
	w.mu.Lock()
	w.waits = append(w.waits, wt)
	onWait := w.onWait
	err := w.err
	w.mu.Unlock()
	if onWait != nil {
		onWait()
	}
	return err
}

func (w *fakeWaiter) count() (reads int, writes int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, wt := range w.waits {
		if wt.readable {
			reads++
		} else {
			writes++
		}
	}
	return
}

func builderOf(engine Engine) EngineBuilder {
	return func(sock Socket) (Engine, error) {
		return engine, nil
	}
}

// parkingWaiter blocks every wait until Detach releases the descriptor.
type parkingWaiter struct {
	mu       sync.Mutex
	parked   chan struct{}
	released chan struct{}
	detached []int
}

func newParkingWaiter() *parkingWaiter {
	return &parkingWaiter{
		parked:   make(chan struct{}, 1),
		released: make(chan struct{}),
	}
}

func (w *parkingWaiter) WaitReadable(_ int, _ time.Duration) error {
	return w.park()
}

func (w *parkingWaiter) WaitWritable(_ int, _ time.Duration) error {
	return w.park()
}

func (w *parkingWaiter) park() error {
	select {
	case w.parked <- struct{}{}:
	default:
	}
	<-w.released
	return errDetachedWait
}

func (w *parkingWaiter) Detach(fd int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.detached) == 0 {
		close(w.released)
	}
	w.detached = append(w.detached, fd)
}

var errDetachedWait = errors.New("wait released")
