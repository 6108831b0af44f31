// Package watch periodically reconciles the task cache with the server.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tasksync/internal/service"
)

// Source is the collection being watched; *cache.Cache satisfies it.
type Source interface {
	Fetch(ctx context.Context, force bool) error
	Tasks() []service.Task
}

// Watcher forces a refetch on every tick and reports when the collection
// changed.
type Watcher struct {
	cron     *cron.Cron
	src      Source
	interval time.Duration
	onChange func([]service.Task)
	log      *slog.Logger

	mu   sync.Mutex
	last string
}

// New creates a Watcher. onChange receives the new collection after a tick
// that changed it.
func New(src Source, interval time.Duration, onChange func([]service.Task), logger *slog.Logger) (*Watcher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		src:      src,
		interval: interval,
		onChange: onChange,
		log:      logger.With("component", "watch"),
	}, nil
}

// Prime records the current collection as the baseline.
func (w *Watcher) Prime() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = fingerprint(w.src.Tasks())
}

// Tick refetches once and calls onChange if the collection differs from
// the previous tick. A failed fetch is logged and reported nowhere else;
// the next tick tries again.
func (w *Watcher) Tick(ctx context.Context) {
	if err := w.src.Fetch(ctx, true); err != nil {
		w.log.Warn("refresh failed", "error", err)
		return
	}
	tasks := w.src.Tasks()
	fp := fingerprint(tasks)

	w.mu.Lock()
	changed := fp != w.last
	w.last = fp
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(tasks)
	}
}

// Run ticks every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	seconds := int(w.interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	if _, err := w.cron.AddFunc(spec, func() { w.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	w.log.Debug("watching", "every", spec)

	w.cron.Start()
	<-ctx.Done()
	<-w.cron.Stop().Done()
	return nil
}

func fingerprint(tasks []service.Task) string {
	data, err := json.Marshal(tasks)
	if err != nil {
		return ""
	}
	return string(data)
}
