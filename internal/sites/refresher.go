package sites

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Loader loads the current site list from a backing store.
type Loader interface {
	Load(ctx context.Context) ([]Site, error)
}

// Refresher periodically reloads a Catalog from a Loader.
type Refresher struct {
	cron    *cron.Cron
	loader  Loader
	catalog *Catalog
	spec    string
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRefresher creates a Refresher running on the given cron spec
// (e.g. "@every 5m").
func NewRefresher(loader Loader, catalog *Catalog, spec string, logger *slog.Logger) *Refresher {
	return &Refresher{
		cron:    cron.New(),
		loader:  loader,
		catalog: catalog,
		spec:    spec,
		logger:  logger,
	}
}

// Refresh loads the site list once and swaps it into the catalog. An empty
// result is rejected so a truncated table cannot take the service offline.
func (r *Refresher) Refresh(ctx context.Context) error {
	list, err := r.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load sites: %w", err)
	}
	if len(Sanitize(list)) == 0 {
		return fmt.Errorf("load sites: no usable sites")
	}

	r.catalog.Replace(list)
	r.logger.Info("site catalog refreshed", "sites", len(list))
	return nil
}

// Start loads the catalog once synchronously and then schedules reloads.
func (r *Refresher) Start(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	_, err := r.cron.AddFunc(r.spec, func() {
		if err := r.Refresh(ctx); err != nil {
			r.logger.Error("site catalog refresh failed", "error", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	r.cron.Start()
	r.logger.Info("site catalog refresher started", "spec", r.spec)
	return nil
}

// Stop stops scheduling and waits for a running reload to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
}
