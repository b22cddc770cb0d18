package stls

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp"
	"sync"
)

var ErrExecutorsRunning = errors.Define("executors are already running")

const opExecutors = "executors"

// pool holds the executors shared by every *Async call that was not given
// its own with WithExecutors. A shut down pool starts again on next use.
var pool struct {
	mu   sync.Mutex
	exec rxp.Executors
}

// Startup
// starts the shared executors with options.
//
// Optional: Executors starts them with defaults on first use. Startup fails
// with ErrExecutorsRunning once they run, so call it before the first *Async.
func Startup(options ...rxp.Option) (err error) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if pool.exec != nil {
		err = ErrExecutorsRunning
		return
	}
	exec, startErr := rxp.New(options...)
	if startErr != nil {
		err = newOpErr(opExecutors, "start executors failed", startErr)
		return
	}
	pool.exec = exec
	return
}

// Shutdown
// stops the shared executors and returns without waiting for running operations.
func Shutdown() error {
	exec := takeExecutors()
	if exec == nil {
		return nil
	}
	go func(exec rxp.Executors) {
		_ = exec.Close()
	}(exec)
	return nil
}

// ShutdownGracefully
// stops the shared executors once every running operation has returned.
func ShutdownGracefully() (err error) {
	exec := takeExecutors()
	if exec == nil {
		return
	}
	if closeErr := exec.Close(); closeErr != nil {
		err = newOpErr(opExecutors, "stop executors failed", closeErr)
	}
	return
}

func takeExecutors() (exec rxp.Executors) {
	pool.mu.Lock()
	exec, pool.exec = pool.exec, nil
	pool.mu.Unlock()
	return
}

// Executors
// returns the shared executors, starting them with defaults if needed.
func Executors() (rxp.Executors, error) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if pool.exec == nil {
		exec, err := rxp.New()
		if err != nil {
			return nil, newOpErr(opExecutors, "start executors failed", err)
		}
		pool.exec = exec
	}
	return pool.exec, nil
}
