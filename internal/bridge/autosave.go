package bridge

import (
	"context"
	"sync"

	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/kanmap/internal/app"
)

// Exporter produces the config that should be sent to the host.
type Exporter interface {
	ExportConfig() app.WidgetConfig
}

// Saver writes one config to the host.
type Saver interface {
	Save(context.Context, app.WidgetConfig) error
}

// AutoSaver pushes the board to the host after every committed change.
// Saves are fire-and-forget: bursts coalesce into one save and failures are
// logged and kept for LastError, never retried.
type AutoSaver struct {
	source Exporter
	saver  Saver
	logger *charmLog.Logger
	notify chan struct{}

	mu      sync.Mutex
	lastErr error
	saves   int
}

// NewAutoSaver constructs a new value for this package.
func NewAutoSaver(source Exporter, saver Saver, logger *charmLog.Logger) *AutoSaver {
	if logger == nil {
		logger = charmLog.Default()
	}
	return &AutoSaver{
		source: source,
		saver:  saver,
		logger: logger,
		notify: make(chan struct{}, 1),
	}
}

// Notify schedules a save. It never blocks; pending requests collapse into one.
func (a *AutoSaver) Notify() {
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// Listener adapts the saver to the service change feed. Host pushes are skipped
// so state received from the host is not echoed straight back.
func (a *AutoSaver) Listener() app.ChangeListener {
	return func(ev app.ChangeEvent) {
		if ev.Kind == app.ChangeHost {
			return
		}
		a.Notify()
	}
}

// Run performs saves until ctx is canceled.
func (a *AutoSaver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.notify:
			_ = a.SaveNow(ctx)
		}
	}
}

// SaveNow exports and saves synchronously, recording the outcome.
func (a *AutoSaver) SaveNow(ctx context.Context) error {
	err := a.saver.Save(ctx, a.source.ExportConfig())
	a.mu.Lock()
	a.lastErr = err
	if err == nil {
		a.saves++
	}
	a.mu.Unlock()
	if err != nil {
		a.logger.Error("board save failed", "err", err)
		return err
	}
	a.logger.Debug("board saved")
	return nil
}

// LastError returns the outcome of the most recent save, or nil.
func (a *AutoSaver) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Saves returns how many saves have succeeded.
func (a *AutoSaver) Saves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saves
}
