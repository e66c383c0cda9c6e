package overview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type listerFunc func(ctx context.Context, since time.Time) ([]string, error)

func (f listerFunc) Environments(ctx context.Context, since time.Time) ([]string, error) {
	return f(ctx, since)
}

func TestWatcherCheck(t *testing.T) {
	var next []string
	var nextErr error
	var gotSince time.Time
	src := listerFunc(func(_ context.Context, since time.Time) ([]string, error) {
		gotSince = since
		return next, nextErr
	})
	core, logs := observer.New(zap.InfoLevel)
	w := NewWatcher(src, time.Hour, time.Minute, zap.New(core))
	w.now = func() time.Time { return fixedNow }
	ctx := context.Background()

	next = []string{"ABD", "SAT"}
	assert.True(t, w.check(ctx))
	assert.Equal(t, fixedNow.Add(-time.Hour), gotSince)
	assert.InDelta(t, 2, testutil.ToFloat64(environmentsGauge), 1e-9)

	assert.False(t, w.check(ctx), "unchanged set")

	next = []string{"ABD", "DED"}
	assert.True(t, w.check(ctx))
	last := logs.All()[logs.Len()-1].ContextMap()
	assert.Equal(t, []any{"DED"}, last["added"])
	assert.Equal(t, []any{"SAT"}, last["removed"])

	nextErr = errors.New("timeout")
	assert.False(t, w.check(ctx))
	assert.Equal(t, []string{"ABD", "DED"}, w.last)
}

func TestWatcherGaugeMatchesOverviewColumns(t *testing.T) {
	envs := []string{"SAT", ""}
	w := NewWatcher(listerFunc(func(context.Context, time.Time) ([]string, error) { return envs, nil }),
		time.Hour, time.Minute, nil)
	require.True(t, w.check(context.Background()))
	fromWatcher := testutil.ToFloat64(environmentsGauge)

	_, err := newTestAggregator(&fakeSource{envs: envs}).Compute(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1, fromWatcher, 1e-9)
	assert.InDelta(t, fromWatcher, testutil.ToFloat64(environmentsGauge), 1e-9)
}

func TestWatcherEmptySetIsRecorded(t *testing.T) {
	src := listerFunc(func(context.Context, time.Time) ([]string, error) { return nil, nil })
	w := NewWatcher(src, time.Hour, time.Minute, nil)
	assert.True(t, w.check(context.Background()))
	assert.False(t, w.check(context.Background()))
}

func TestWatcherStartStops(t *testing.T) {
	calls := make(chan struct{}, 10)
	src := listerFunc(func(context.Context, time.Time) ([]string, error) {
		calls <- struct{}{}
		return []string{"SAT"}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	NewWatcher(src, time.Hour, 10*time.Millisecond, nil).Start(ctx)

	select {
	case <-calls:
	case <-time.After(time.Second):
		require.Fail(t, "watcher never checked")
	}
	cancel()
}

func TestWatcherDisabled(t *testing.T) {
	src := listerFunc(func(context.Context, time.Time) ([]string, error) {
		t.Fatal("disabled watcher must not query")
		return nil, nil
	})
	NewWatcher(src, time.Hour, 0, nil).Start(context.Background())
}
