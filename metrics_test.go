package stls

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"testing"
)

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	require.NoError(t, err)

	engine := newFakeEngine()
	engine.handshake = errs(ErrWantRead, ErrWantWrite, ErrWantRead, nil)
	engine.send = errs(NewSyscallError(-1, nil))
	engine.recv = scripted(result{err: ErrZeroReturn})
	waiter := &fakeWaiter{}
	conn, err := New(builderOf(engine), &fakeSocket{fd: 7}, WithWaiter(waiter), WithMetrics(metrics))
	require.NoError(t, err)

	require.NoError(t, conn.Handshake())
	_, err = conn.Send(nil, 0)
	require.NoError(t, err)
	_, err = conn.Recv(make([]byte, 1), 0)
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.suspensions.WithLabelValues(opHandshake, directionRead)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.suspensions.WithLabelValues(opHandshake, directionWrite)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.suppressed.WithLabelValues(benignEmptySend)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.suppressed.WithLabelValues(benignZeroReturn)))

	engine.recv = scripted(result{err: ErrWantRead})
	waiter.err = os.ErrDeadlineExceeded
	_, err = conn.Recv(make([]byte, 1), 0)
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.waitFailures.WithLabelValues(opRecv, "timeout")))

	count, err := testutil.GatherAndCount(registry, "stls_suspensions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// a second registration of the same names fails
	_, err = NewMetrics(registry)
	assert.Error(t, err)
}

func TestMetrics_Nil(t *testing.T) {
	var metrics *Metrics
	metrics.suspended(opRecv, directionRead)
	metrics.waitFailed(opRecv, os.ErrDeadlineExceeded)
	metrics.benign(benignZeroReturn)

	unregistered, err := NewMetrics(nil)
	require.NoError(t, err)
	unregistered.suspended(opRecv, directionRead)
	assert.Equal(t, float64(1), testutil.ToFloat64(unregistered.suspensions.WithLabelValues(opRecv, directionRead)))
}
