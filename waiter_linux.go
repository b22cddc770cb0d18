//go:build linux

package stls

import (
	"github.com/brickingsoft/stls/pkg/poll"
	"sync"
)

var (
	defaultPoller     *poll.Poller
	defaultPollerErr  error
	defaultPollerOnce sync.Once
)

// DefaultWaiter returns the process wide epoll waiter, opening it on first use.
func DefaultWaiter() (Waiter, error) {
	defaultPollerOnce.Do(func() {
		defaultPoller, defaultPollerErr = poll.Open()
	})
	if defaultPollerErr != nil {
		return nil, defaultPollerErr
	}
	return defaultPoller, nil
}
