package stls

import (
	"github.com/brickingsoft/errors"
)

const (
	directionRead  = "read"
	directionWrite = "write"
)

const (
	benignZeroReturn = "zero_return"
	benignEmptySend  = "empty_send"
)

// retry calls fn until it stops asking for readiness. Each ErrWantRead or
// ErrWantWrite parks the goroutine on the waiter exactly once; a failed wait
// ends the loop with the waiter's error as is, or with ErrClosed when the
// connection was closed meanwhile. Every other error is returned untouched.
func retry[R any](conn *Connection, op string, fn func() (R, error)) (r R, err error) {
	for {
		if conn.closed.Load() {
			err = ErrClosed
			return
		}
		r, err = fn()
		if err == nil {
			return
		}
		var waitErr error
		switch {
		case errors.Is(err, ErrWantRead):
			waitErr = conn.wait(op, directionRead)
		case errors.Is(err, ErrWantWrite):
			waitErr = conn.wait(op, directionWrite)
		default:
			return
		}
		if waitErr != nil {
			var zero R
			r, err = zero, waitErr
			if conn.closed.Load() {
				err = ErrClosed
			}
			return
		}
	}
}

func (conn *Connection) wait(op string, direction string) (err error) {
	fd := conn.sock.Fd()
	timeout := conn.sock.Timeout()
	logger := conn.logger

	logger.Debug().Str("op", op).Str("direction", direction).Int("fd", fd).Dur("timeout", timeout).Msg("stls: suspend")
	conn.options.Metrics.suspended(op, direction)

	conn.parked.Add(1)
	defer conn.parked.Add(-1)
	if conn.closed.Load() {
		err = ErrClosed
		return
	}
	if direction == directionRead {
		err = conn.options.Waiter.WaitReadable(fd, timeout)
	} else {
		err = conn.options.Waiter.WaitWritable(fd, timeout)
	}
	if err != nil {
		logger.Warn().Err(err).Str("op", op).Str("direction", direction).Int("fd", fd).Bool("timeout", IsTimeout(err)).Msg("stls: wait failed")
		conn.options.Metrics.waitFailed(op, err)
	}
	return
}

func (conn *Connection) suppressed(op string, kind string, cause error) {
	conn.logger.Debug().Err(cause).Str("op", op).Str("kind", kind).Msg("stls: suppressed benign failure")
	conn.options.Metrics.benign(kind)
}
