package overview

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
)

// EnvironmentLister is the discovery half of Source.
type EnvironmentLister interface {
	Environments(ctx context.Context, since time.Time) ([]string, error)
}

// Watcher re-reads the active environment set on an interval and logs when
// it changes, so operators see overview columns appear and disappear.
type Watcher struct {
	src      EnvironmentLister
	window   time.Duration
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger

	last []string
}

func NewWatcher(src EnvironmentLister, window, interval time.Duration, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{src: src, window: window, interval: interval, now: time.Now, log: log}
}

// Start runs one check immediately and then one per interval until ctx is
// done. It returns at once when the interval is not positive.
func (w *Watcher) Start(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	go func() {
		w.check(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.check(ctx)
			}
		}
	}()
}

// check returns whether the environment set changed since the previous check.
func (w *Watcher) check(ctx context.Context) bool {
	envs, err := w.src.Environments(ctx, w.now().Add(-w.window))
	if err != nil {
		w.log.Warn("environment watch failed", zap.Error(err))
		return false
	}
	cols, _ := Columns(envs)
	environmentsGauge.Set(float64(len(cols)))

	if w.last != nil && slices.Equal(w.last, envs) {
		return false
	}
	added, removed := diff(w.last, envs)
	w.log.Info("active environments changed",
		zap.Int("count", len(envs)),
		zap.Strings("added", added),
		zap.Strings("removed", removed))
	w.last = slices.Clone(envs)
	if w.last == nil {
		w.last = []string{}
	}
	return true
}

func diff(before, after []string) (added, removed []string) {
	for _, e := range after {
		if !slices.Contains(before, e) {
			added = append(added, e)
		}
	}
	for _, e := range before {
		if !slices.Contains(after, e) {
			removed = append(removed, e)
		}
	}
	return added, removed
}
