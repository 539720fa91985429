// Package pipeline orchestrates one full acquisition run: enumerate the
// registry, scrape every unit page, reconcile both sources, and replace
// the stored directory wholesale.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"foiadir/internal/directory"
	"foiadir/internal/metrics"
	"foiadir/internal/registry"
	"foiadir/internal/scrape"
)

// Fetcher enumerates the registry component catalog.
type Fetcher interface {
	FetchComponents(ctx context.Context) []registry.Component
}

// Scraper visits unit pages and returns one record per input id, in
// input order.
type Scraper interface {
	Scrape(ctx context.Context, unitIDs []string) []scrape.Record
}

// Report summarizes one acquisition run.
type Report struct {
	RunID      string        `json:"run_id"`
	Components int           `json:"components"`
	Scraped    int           `json:"scraped"`
	WithEmail  int           `json:"with_email"`
	Records    int           `json:"records"`
	Duration   time.Duration `json:"duration"`
}

// Pipeline wires the acquisition stages together.
type Pipeline struct {
	fetcher Fetcher
	scraper Scraper
	store   *directory.Store
	metrics *metrics.Metrics
	log     *zap.Logger
}

// New builds a pipeline. metrics may be nil.
func New(fetcher Fetcher, scraper Scraper, store *directory.Store, m *metrics.Metrics, log *zap.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		scraper: scraper,
		store:   store,
		metrics: m,
		log:     log,
	}
}

// Run executes one acquisition run end to end.
//
// An empty enumeration aborts the run without touching the stored
// directory: replacing a populated directory with nothing is always a
// worse outcome than keeping stale data. A canceled context likewise
// aborts before the replace, since a half-scraped run would demote
// records that already had contact details.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.log.With(zap.String("run_id", runID))

	log.Info("acquisition run started")

	components := p.fetcher.FetchComponents(ctx)
	if len(components) == 0 {
		log.Warn("registry enumeration returned no components, directory left untouched")
		return Report{RunID: runID, Duration: time.Since(start)},
			fmt.Errorf("registry enumeration returned no components")
	}
	log.Info("registry enumerated", zap.Int("components", len(components)))

	ids := make([]string, len(components))
	for i, comp := range components {
		ids[i] = comp.ID
	}

	scraped := p.scraper.Scrape(ctx, ids)
	withEmail := 0
	for _, rec := range scraped {
		if rec.Email != "" {
			withEmail++
		}
	}
	log.Info("unit pages scraped",
		zap.Int("units", len(scraped)),
		zap.Int("with_email", withEmail))

	if err := ctx.Err(); err != nil {
		log.Warn("run canceled, directory left untouched", zap.Error(err))
		return Report{RunID: runID, Components: len(components), Scraped: len(scraped), WithEmail: withEmail, Duration: time.Since(start)},
			fmt.Errorf("acquisition run canceled: %w", err)
	}

	records := directory.Reconcile(scraped, components, start)
	if err := p.store.Replace(records); err != nil {
		return Report{RunID: runID, Components: len(components), Scraped: len(scraped), WithEmail: withEmail, Duration: time.Since(start)},
			fmt.Errorf("replace directory: %w", err)
	}

	duration := time.Since(start)
	p.metrics.ObserveRunDuration(duration)
	p.metrics.SetDirectorySize(len(records))

	log.Info("acquisition run complete",
		zap.Int("records", len(records)),
		zap.Duration("duration", duration))

	return Report{
		RunID:      runID,
		Components: len(components),
		Scraped:    len(scraped),
		WithEmail:  withEmail,
		Records:    len(records),
		Duration:   duration,
	}, nil
}
