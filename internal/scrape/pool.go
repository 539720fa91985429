// Package scrape visits agency unit pages with a headless browser and
// schedules those visits across a fixed worker pool.
package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"foiadir/internal/extract"
	"foiadir/internal/metrics"
)

// Record is the outcome of scraping one unit page. A placeholder record
// (all optional fields empty) marks a task that failed or timed out; the
// unit still occupies its slot in the output.
type Record struct {
	UnitID        string
	DisplayName   string
	Email         string
	Officer       string
	Phone         string
	PostalAddress string
	SourceURL     string
}

// Capture is the raw result of one page visit, before extraction.
type Capture struct {
	UnitID string
	URL    string
	HTML   string
}

// Visitor performs the browser half of a scrape task.
//
// Visit must honor ctx cancellation and must return a Capture whose UnitID
// and URL are populated even when it returns an error, so the scheduler can
// build a placeholder. A visitor is never shared between concurrent tasks.
type Visitor interface {
	Visit(ctx context.Context, unitID string) (Capture, error)
}

// Pool schedules scrape tasks over a fixed set of reusable workers.
//
// Unit ids are processed in consecutive batches of pool width: every task
// in a batch finishes before the next batch starts, and result i always
// lands in output slot i. Worker visitors live for the lifetime of the
// pool and are reused across batches.
type Pool struct {
	visitors    []Visitor
	taskTimeout time.Duration
	metrics     *metrics.Metrics
	log         *zap.Logger
}

// NewPool builds a pool over one visitor per worker. metrics may be nil.
func NewPool(visitors []Visitor, taskTimeout time.Duration, m *metrics.Metrics, log *zap.Logger) *Pool {
	return &Pool{
		visitors:    visitors,
		taskTimeout: taskTimeout,
		metrics:     m,
		log:         log,
	}
}

// Width returns the number of workers, which is also the batch size.
func (p *Pool) Width() int {
	return len(p.visitors)
}

// Scrape visits every unit id and returns one record per input, in input
// order. Individual task failures degrade to placeholder records; Scrape
// itself never fails.
func (p *Pool) Scrape(ctx context.Context, unitIDs []string) []Record {
	out := make([]Record, len(unitIDs))

	width := p.Width()
	if width == 0 {
		p.log.Error("scrape pool has no workers")
		for i, id := range unitIDs {
			out[i] = placeholder(id, "")
		}
		return out
	}

	for start := 0; start < len(unitIDs); start += width {
		end := min(start+width, len(unitIDs))

		eg, egCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			slot := i
			v := p.visitors[i-start]
			eg.Go(func() error {
				out[slot] = p.runTask(egCtx, v, unitIDs[slot])
				return nil
			})
		}
		_ = eg.Wait()
	}

	return out
}

// runTask visits one unit within the per-task timeout and extracts its
// contact details. Failures become placeholders, never errors.
func (p *Pool) runTask(ctx context.Context, v Visitor, unitID string) Record {
	taskCtx, cancel := context.WithTimeout(ctx, p.taskTimeout)
	defer cancel()

	capture, err := v.Visit(taskCtx, unitID)
	p.metrics.AddUnitsScraped(1)
	if err != nil {
		p.metrics.AddScrapeFailures(1)
		p.log.Warn("scrape task failed",
			zap.String("unit_id", unitID),
			zap.String("url", capture.URL),
			zap.Error(err))
		return placeholder(unitID, capture.URL)
	}

	contact := extract.Page(capture.HTML)
	return Record{
		UnitID:        unitID,
		DisplayName:   contact.Name,
		Email:         contact.Email,
		Officer:       contact.Officer,
		Phone:         contact.Phone,
		PostalAddress: contact.Address,
		SourceURL:     capture.URL,
	}
}

func placeholder(unitID, url string) Record {
	return Record{UnitID: unitID, SourceURL: url}
}
