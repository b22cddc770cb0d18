package stls

import (
	"bytes"
	"github.com/brickingsoft/rxp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNewOptions(t *testing.T) {
	waiter := &fakeWaiter{}
	opts, err := newOptions([]Option{WithWaiter(waiter), nil})
	require.NoError(t, err)
	assert.Same(t, waiter, opts.Waiter)
	assert.Nil(t, opts.Metrics)
	assert.Nil(t, opts.Executors)
	assert.Equal(t, zerolog.Disabled, opts.Logger.GetLevel())

	exec, err := rxp.New()
	require.NoError(t, err)
	defer exec.Close()
	metrics, err := NewMetrics(nil)
	require.NoError(t, err)
	opts, err = newOptions([]Option{WithWaiter(waiter), WithMetrics(metrics), WithExecutors(exec)})
	require.NoError(t, err)
	assert.Same(t, metrics, opts.Metrics)
	assert.Equal(t, exec, opts.Executors)

	_, err = newOptions([]Option{WithWaiter(nil)})
	assert.ErrorIs(t, err, ErrNoWaiter)
}

func TestWithLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := zerolog.New(buf).Level(zerolog.DebugLevel)

	engine := newFakeEngine()
	engine.handshake = errs(ErrWantRead, nil)
	engine.recv = scripted(result{err: ErrZeroReturn})
	conn, err := New(builderOf(engine), &fakeSocket{fd: 7}, WithWaiter(&fakeWaiter{}), WithLogger(logger))
	require.NoError(t, err)

	require.NoError(t, conn.Handshake())
	_, err = conn.Recv(make([]byte, 1), 0)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"op":"handshake"`)
	assert.Contains(t, out, `"direction":"read"`)
	assert.Contains(t, out, `"kind":"zero_return"`)
	assert.Contains(t, out, `"conn":"`+conn.ID()+`"`)
}
