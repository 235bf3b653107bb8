// Package jobs runs page workflows on a bounded worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/pdftoc/internal/outline"
	"github.com/jackzampolin/pdftoc/internal/workflow"
)

// DefaultConcurrency is the number of pages recognized at once.
const DefaultConcurrency = 3

// Runner processes one page to completion. *workflow.Workflow implements it.
type Runner interface {
	Run(ctx context.Context, page workflow.PageImage) outline.PageResult
}

// ProgressFunc is called after each page finishes. Calls are serialized.
type ProgressFunc func(done, total int, result outline.PageResult)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Runner      Runner
	Concurrency int // Worker count (default: 3)
	Collector   *Collector
	OnPageDone  ProgressFunc
	Logger      *slog.Logger
}

// Scheduler runs one Runner call per page under a fixed concurrency bound.
// All workers pull from a single shared queue; results are joined at a
// barrier and returned in input order.
type Scheduler struct {
	runner      Runner
	concurrency int
	collector   *Collector
	onPageDone  ProgressFunc
	logger      *slog.Logger

	inFlight  atomic.Int32
	completed atomic.Int32
	total     atomic.Int32
}

// PoolStatus reports scheduler progress.
type PoolStatus struct {
	Workers   int `json:"workers" yaml:"workers"`
	InFlight  int `json:"in_flight" yaml:"in_flight"`
	Completed int `json:"completed" yaml:"completed"`
	Total     int `json:"total" yaml:"total"`
}

// NewScheduler creates a scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Runner == nil {
		return nil, errors.New("scheduler: runner is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	collector := cfg.Collector
	if collector == nil {
		collector = NewCollector()
	}

	return &Scheduler{
		runner:      cfg.Runner,
		concurrency: concurrency,
		collector:   collector,
		onPageDone:  cfg.OnPageDone,
		logger:      logger.With("workers", concurrency),
	}, nil
}

// Run processes every page and blocks until all are done. The returned
// slice has one result per input, at the input's position. A page that
// fails (or is cancelled) still occupies its slot, with no entries and an
// error diagnostic; one page never aborts the batch.
func (s *Scheduler) Run(ctx context.Context, pages []workflow.PageImage) []outline.PageResult {
	results := make([]outline.PageResult, len(pages))
	if len(pages) == 0 {
		return results
	}

	s.total.Store(int32(len(pages)))
	s.completed.Store(0)

	queue := make(chan int, len(pages))
	for i := range pages {
		queue <- i
	}
	close(queue)

	workers := s.concurrency
	if workers > len(pages) {
		workers = len(pages)
	}

	start := time.Now()
	s.logger.Info("scheduler starting", "pages", len(pages), "pool", workers)

	var progressMu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for idx := range queue {
				s.inFlight.Add(1)
				result := s.runOne(ctx, id, pages[idx])
				s.inFlight.Add(-1)

				// Each index is written by exactly one worker.
				results[idx] = result
				s.collector.Append(result.Diagnostics...)
				done := int(s.completed.Add(1))

				if s.onPageDone != nil {
					progressMu.Lock()
					s.onPageDone(done, len(pages), result)
					progressMu.Unlock()
				}
			}
		}(w)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	s.logger.Info("scheduler finished",
		"pages", len(pages),
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond))
	return results
}

// runOne isolates a panic in one page so the rest of the batch completes.
func (s *Scheduler) runOne(ctx context.Context, workerID int, page workflow.PageImage) (result outline.PageResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("page worker panicked", "worker_id", workerID, "page", page.Index, "panic", r, "stack", string(debug.Stack()))
			result = outline.PageResult{
				PageIndex:   page.Index,
				SourceImage: page.Path,
				Diagnostics: []outline.Diagnostic{{
					Severity:  outline.SeverityError,
					Kind:      outline.KindFatal,
					PageIndex: page.Index,
					Message:   fmt.Sprintf("page %d: internal error: %v", page.Index, r),
				}},
			}
		}
	}()

	s.logger.Debug("worker picked page", "worker_id", workerID, "page", page.Index)
	return s.runner.Run(ctx, page)
}

// Diagnostics returns everything the workers have collected so far.
func (s *Scheduler) Diagnostics() []outline.Diagnostic {
	return s.collector.Snapshot()
}

// Status returns current pool status.
func (s *Scheduler) Status() PoolStatus {
	return PoolStatus{
		Workers:   s.concurrency,
		InFlight:  int(s.inFlight.Load()),
		Completed: int(s.completed.Load()),
		Total:     int(s.total.Load()),
	}
}
