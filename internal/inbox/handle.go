package inbox

import (
	"context"
	"sync"
)

// Handle gives every consumer the same Service, built on first use.
// Construct one Handle per process and pass it to consumers.
type Handle struct {
	once  sync.Once
	build func() *Service
	svc   *Service
}

// NewHandle creates a Handle that calls build the first time Get is called.
func NewHandle(build func() *Service) *Handle {
	return &Handle{build: build}
}

// Get returns the Service, building it if needed.
func (h *Handle) Get() *Service {
	h.once.Do(func() {
		h.svc = h.build()
	})
	return h.svc
}

// Name returns the worker's name.
func (h *Handle) Name() string { return "inbox" }

// Run starts polling on the shared Service.
func (h *Handle) Run(ctx context.Context) error {
	return h.Get().Run(ctx)
}
