package stls

import (
	"github.com/brickingsoft/errors"
)

// Engine signals. An Engine returns them, possibly wrapped, to tell the
// Connection what happened; the Connection matches them by identity only.
var (
	// ErrWantRead means the engine cannot progress until the socket is readable.
	ErrWantRead = errors.Define("want read")
	// ErrWantWrite means the engine cannot progress until the socket is writable.
	ErrWantWrite = errors.Define("want write")
	// ErrZeroReturn means the peer closed the TLS session cleanly.
	ErrZeroReturn = errors.Define("zero return")
)

var (
	ErrClosed             = errors.Define("use of closed connection")
	ErrNilEngineBuilder   = errors.Define("engine builder is nil")
	ErrNilEngine          = errors.Define("engine builder returned nil engine")
	ErrNilSocket          = errors.Define("socket is nil")
	ErrNotAcceptor        = errors.Define("socket can not accept connections")
	ErrShutdownNotSupport = errors.Define("engine does not support shutdown")
	ErrNoWaiter           = errors.Define("no readiness waiter available on this platform")
)

func IsWantRead(err error) bool {
	return errors.Is(err, ErrWantRead)
}

func IsWantWrite(err error) bool {
	return errors.Is(err, ErrWantWrite)
}

func IsZeroReturn(err error) bool {
	return errors.Is(err, ErrZeroReturn)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "stls"
)

const (
	errMetaOpKey = "op"
	opNew        = "new"
	opHandshake  = "handshake"
	opConnect    = "connect"
	opSend       = "send"
	opRecv       = "receive"
	opAccept     = "accept"
	opShutdown   = "shutdown"
	opClose      = "close"
)

func newOpErr(op string, msg string, cause error) error {
	return errors.New(
		msg,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(cause),
	)
}
