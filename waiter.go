package stls

import (
	"time"
)

// Waiter suspends the calling goroutine until a descriptor is ready.
// An elapsed timeout must fail with an error for which IsTimeout is true.
type Waiter interface {
	WaitReadable(fd int, timeout time.Duration) error
	WaitWritable(fd int, timeout time.Duration) error
}

// Detacher is implemented by waiters that can release every goroutine
// parked on a descriptor. Connection.Close uses it so a blocked Recv or
// Send returns ErrClosed instead of sleeping until its timeout.
type Detacher interface {
	Detach(fd int)
}
