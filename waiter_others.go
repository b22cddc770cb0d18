//go:build !linux

package stls

// DefaultWaiter has no implementation outside linux; use WithWaiter.
func DefaultWaiter() (Waiter, error) {
	return nil, ErrNoWaiter
}
