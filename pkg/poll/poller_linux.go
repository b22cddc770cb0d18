//go:build linux

package poll

import (
	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"
	"os"
	"sync"
	"time"
	"unsafe"
)

var (
	ErrClosed   = errors.Define("poller was closed")
	ErrDetached = errors.Define("descriptor was detached from the poller")
)

const (
	readEvents  = unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLHUP | unix.EPOLLERR
	writeEvents = unix.EPOLLOUT | unix.EPOLLHUP | unix.EPOLLERR
)

// Poller parks goroutines until a descriptor becomes readable or writable.
// A single goroutine runs epoll_wait; waiters never hold an OS thread.
type Poller struct {
	fd     int
	wfd    int
	mu     sync.Mutex
	descs  map[int]*pollDesc
	closed bool
	done   chan struct{}
	exited chan struct{}
}

// pollDesc holds the goroutines parked on one descriptor, per direction.
// Every parked channel has room for exactly one result.
type pollDesc struct {
	registered bool
	r          []chan error
	w          []chan error
}

func Open() (*Poller, error) {
	p, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	wfd, wfdErr := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if wfdErr != nil {
		_ = unix.Close(p)
		return nil, os.NewSyscallError("eventfd", wfdErr)
	}
	if ctlErr := unix.EpollCtl(p, unix.EPOLL_CTL_ADD, wfd, &unix.EpollEvent{Fd: int32(wfd), Events: unix.EPOLLIN}); ctlErr != nil {
		_ = unix.Close(wfd)
		_ = unix.Close(p)
		return nil, os.NewSyscallError("epoll_ctl", ctlErr)
	}
	poller := &Poller{
		fd:     p,
		wfd:    wfd,
		descs:  make(map[int]*pollDesc),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go poller.loop()
	return poller, nil
}

// WaitReadable parks the caller until fd is readable, hung up or in error.
// A timeout of zero waits forever; an elapsed timeout returns os.ErrDeadlineExceeded.
// Any number of goroutines may wait on the same descriptor; readiness wakes them all.
func (p *Poller) WaitReadable(fd int, timeout time.Duration) error {
	return p.wait(fd, true, timeout)
}

// WaitWritable parks the caller until fd is writable, hung up or in error.
func (p *Poller) WaitWritable(fd int, timeout time.Duration) error {
	return p.wait(fd, false, timeout)
}

func (p *Poller) wait(fd int, readable bool, timeout time.Duration) (err error) {
	ch := make(chan error, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	pd, has := p.descs[fd]
	if !has {
		pd = &pollDesc{}
		p.descs[fd] = pd
	}
	if readable {
		pd.r = append(pd.r, ch)
	} else {
		pd.w = append(pd.w, ch)
	}
	if err = p.arm(fd, pd); err != nil {
		p.drop(fd, pd, ch)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err = <-ch:
		return
	case <-expired:
		p.mu.Lock()
		p.drop(fd, pd, ch)
		p.mu.Unlock()
		// the event may have raced the timer
		select {
		case err = <-ch:
			return
		default:
		}
		return os.ErrDeadlineExceeded
	case <-p.done:
		return ErrClosed
	}
}

// Detach releases every goroutine parked on fd with ErrDetached and forgets
// the descriptor. Call it before closing fd, whose number may be reused.
func (p *Poller) Detach(fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pd, has := p.descs[fd]
	if !has {
		return
	}
	for _, ch := range pd.r {
		ch <- ErrDetached
	}
	for _, ch := range pd.w {
		ch <- ErrDetached
	}
	pd.r, pd.w = nil, nil
	_ = p.arm(fd, pd)
}

// drop removes ch from pd and re-arms or forgets fd. Caller holds p.mu.
func (p *Poller) drop(fd int, pd *pollDesc, ch chan error) {
	pd.r = without(pd.r, ch)
	pd.w = without(pd.w, ch)
	_ = p.arm(fd, pd)
}

func without(chs []chan error, ch chan error) []chan error {
	for i, c := range chs {
		if c == ch {
			return append(chs[:i], chs[i+1:]...)
		}
	}
	return chs
}

// arm registers the union of the parked directions as a one-shot interest.
// Caller holds p.mu.
func (p *Poller) arm(fd int, pd *pollDesc) (err error) {
	var events uint32
	if len(pd.r) > 0 {
		events |= readEvents
	}
	if len(pd.w) > 0 {
		events |= writeEvents
	}
	if events == 0 {
		if pd.registered {
			_ = unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
		}
		if p.descs[fd] == pd {
			delete(p.descs, fd)
		}
		return
	}
	ev := &unix.EpollEvent{Fd: int32(fd), Events: events | unix.EPOLLONESHOT}
	if pd.registered {
		err = unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, ev)
		if err == unix.ENOENT {
			// the descriptor was closed and reused behind our back
			err = unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, ev)
		}
	} else {
		err = unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, ev)
		if err == unix.EEXIST {
			err = unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, ev)
		}
	}
	if err != nil {
		pd.registered = false
		return os.NewSyscallError("epoll_ctl", err)
	}
	pd.registered = true
	return
}

func (p *Poller) loop() {
	defer close(p.exited)
	events := make([]unix.EpollEvent, 128)
	for {
		n, err := unix.EpollWait(p.fd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == p.wfd {
				var data [8]byte
				_, _ = unix.Read(p.wfd, data[:])
				continue
			}
			pd, has := p.descs[fd]
			if !has {
				continue
			}
			ev := events[i].Events
			if ev&readEvents != 0 {
				for _, ch := range pd.r {
					ch <- nil
				}
				pd.r = nil
			}
			if ev&writeEvents != 0 {
				for _, ch := range pd.w {
					ch <- nil
				}
				pd.w = nil
			}
			_ = p.arm(fd, pd)
		}
		p.mu.Unlock()
	}
}

func (p *Poller) wakeup() error {
	var x uint64 = 1
	_, err := unix.Write(p.wfd, (*(*[8]byte)(unsafe.Pointer(&x)))[:])
	return err
}

// Close releases every parked waiter with ErrClosed and stops the poll loop.
func (p *Poller) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	if err := p.wakeup(); err != nil {
		return os.NewSyscallError("write", err)
	}
	<-p.exited

	if err := unix.Close(p.wfd); err != nil {
		return os.NewSyscallError("close", err)
	}
	if err := unix.Close(p.fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}
