package stls

import (
	"github.com/brickingsoft/rxp"
	"github.com/rs/zerolog"
)

type Options struct {
	Waiter    Waiter
	Logger    zerolog.Logger
	Metrics   *Metrics
	Executors rxp.Executors
}

type Option func(options *Options) (err error)

// WithWaiter
// sets the readiness waiter. Defaults to DefaultWaiter.
func WithWaiter(waiter Waiter) Option {
	return func(options *Options) (err error) {
		if waiter == nil {
			err = newOpErr(opNew, "invalid option", ErrNoWaiter)
			return
		}
		options.Waiter = waiter
		return
	}
}

// WithLogger
// sets the logger for suspension and suppression events. Defaults to zerolog.Nop.
func WithLogger(logger zerolog.Logger) Option {
	return func(options *Options) (err error) {
		options.Logger = logger
		return
	}
}

// WithMetrics
// sets the collectors fed by every connection built with these options.
func WithMetrics(metrics *Metrics) Option {
	return func(options *Options) (err error) {
		options.Metrics = metrics
		return
	}
}

// WithExecutors
// sets the executors that run the *Async operations. Defaults to Executors.
func WithExecutors(executors rxp.Executors) Option {
	return func(options *Options) (err error) {
		options.Executors = executors
		return
	}
}

func newOptions(options []Option) (opts Options, err error) {
	opts = Options{
		Logger: zerolog.Nop(),
	}
	for _, option := range options {
		if option == nil {
			continue
		}
		if err = option(&opts); err != nil {
			return
		}
	}
	if opts.Waiter == nil {
		opts.Waiter, err = DefaultWaiter()
	}
	return
}
