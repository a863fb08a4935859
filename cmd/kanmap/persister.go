package main

import (
	"context"

	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/kanmap/internal/app"
)

// boardStore is the part of the service the persister needs.
type boardStore interface {
	Persist(context.Context) error
}

// persister writes the board to sqlite after committed changes, coalescing bursts.
type persister struct {
	store  boardStore
	logger *charmLog.Logger
	notify chan struct{}
}

// newPersister constructs persister.
func newPersister(store boardStore, logger *charmLog.Logger) *persister {
	return &persister{
		store:  store,
		logger: logger,
		notify: make(chan struct{}, 1),
	}
}

// Listener returns a change listener that never blocks the service.
func (p *persister) Listener() app.ChangeListener {
	return func(app.ChangeEvent) {
		select {
		case p.notify <- struct{}{}:
		default:
		}
	}
}

// Run persists on every pending notification until ctx is canceled.
func (p *persister) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.notify:
			if err := p.store.Persist(ctx); err != nil {
				p.logger.Error("board persist failed", "err", err)
				continue
			}
			p.logger.Debug("board persisted")
		}
	}
}
