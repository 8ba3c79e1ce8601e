// Package engine orchestrates background collectors for the daemon.
package engine

import (
	"context"
	"sync"

	"github.com/grovetools/inbox/internal/daemon/collector"
	"github.com/grovetools/inbox/internal/inbox"
	"github.com/sirupsen/logrus"
)

// Engine manages and runs all collectors.
type Engine struct {
	inbox      *inbox.Handle
	collectors []collector.Collector
	prepare    []func(context.Context)
	logger     *logrus.Entry
}

// New creates a new Engine around the shared unread count service.
// The service's poller is always the first collector.
func New(h *inbox.Handle, logger *logrus.Entry) *Engine {
	return &Engine{
		inbox:      h,
		collectors: []collector.Collector{h},
		logger:     logger,
	}
}

// Register adds a collector to the engine.
func (e *Engine) Register(c collector.Collector) {
	e.collectors = append(e.collectors, c)
}

// BeforeStart registers fn to run, in registration order, before any
// collector starts.
func (e *Engine) BeforeStart(fn func(context.Context)) {
	e.prepare = append(e.prepare, fn)
}

// Start runs the BeforeStart hooks, then all collectors, and blocks until
// context is canceled and every collector has returned.
func (e *Engine) Start(ctx context.Context) {
	for _, fn := range e.prepare {
		fn(ctx)
	}

	var wg sync.WaitGroup

	for _, c := range e.collectors {
		wg.Add(1)
		go func(col collector.Collector) {
			defer wg.Done()
			e.logger.WithField("collector", col.Name()).Info("Starting collector")
			if err := col.Run(ctx); err != nil {
				e.logger.WithField("collector", col.Name()).WithError(err).Error("Collector failed")
			}
		}(c)
	}

	wg.Wait()
}

// Inbox returns the engine's unread count service.
func (e *Engine) Inbox() *inbox.Service {
	return e.inbox.Get()
}
