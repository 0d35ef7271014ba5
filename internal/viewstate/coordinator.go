package viewstate

import (
	"context"

	"go.uber.org/zap"

	"shopwindow/internal/domain"
	"shopwindow/internal/filter"
)

// FetchFunc retrieves a page for a filter snapshot.
type FetchFunc func(ctx context.Context, f filter.FilterState) (domain.PagedResult, error)

// ApplyFunc consumes a completed, still-current fetch.
type ApplyFunc func(f filter.FilterState, result domain.PagedResult, err error)

// Coordinator runs fetches for a Controller. In-flight fetches are not
// cancelled when the state changes again; instead each fetch is tagged
// with the generation that started it and its completion is discarded if
// the controller has moved on. The newest result always wins regardless
// of completion order.
type Coordinator struct {
	ctrl   *Controller
	fetch  FetchFunc
	apply  ApplyFunc
	logger *zap.Logger
}

// NewCoordinator wires fetch and apply to ctrl.
func NewCoordinator(ctrl *Controller, fetch FetchFunc, apply ApplyFunc, logger *zap.Logger) *Coordinator {
	return &Coordinator{ctrl: ctrl, fetch: fetch, apply: apply, logger: logger}
}

// Fetch snapshots the current state and generation and retrieves a page
// in the background. The returned channel closes once the completion has
// been applied or discarded. Snapshot and tag are taken under one lock
// hold, and the completion is applied under the same lock that mutations
// take, so an applied result always belongs to the state the controller
// holds at that moment.
func (c *Coordinator) Fetch(ctx context.Context) <-chan struct{} {
	snapshot, gen := c.ctrl.Snapshot()
	done := make(chan struct{})

	go func() {
		defer close(done)

		result, err := c.fetch(ctx, snapshot)

		applied := c.ctrl.WithCurrent(gen, func() {
			c.apply(snapshot, result, err)
		})
		if !applied {
			c.logger.Debug("Discarding stale fetch result",
				zap.Uint64("fetched_generation", gen),
			)
		}
	}()

	return done
}
