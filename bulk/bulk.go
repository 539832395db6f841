// Package bulk runs one tool across many URLs with a bounded worker pool,
// per-host pacing and cancellation, and converts CSV tables in and out.
package bulk

import (
	"context"
	"maps"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/use-agent/pagelens/models"
)

// Executor runs one tool; *runner.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, toolID string, p models.Payload) *models.ResultRecord
}

// Summary is the outcome of one bulk run. Items follow input order; an
// item that never started is nil and counted as skipped.
type Summary struct {
	Items     []*models.BulkItem
	Completed int
	Failed    int
	Skipped   int
}

// Status derives the job status from the counts.
func (s Summary) Status(cancelled bool) string {
	switch {
	case cancelled:
		return models.JobCancelled
	case s.Failed > 0 && s.Completed == 0:
		return models.JobFailed
	case s.Failed > 0 || s.Skipped > 0:
		return models.JobPartial
	default:
		return models.JobCompleted
	}
}

// Runner fans a tool out over URLs. It is safe for concurrent use.
type Runner struct {
	exec    Executor
	workers int
	pacer   *HostPacer
}

// MinWorkers and MaxWorkers bound the pool size.
const (
	MinWorkers = 1
	MaxWorkers = 10
)

// NewRunner clamps workers to [MinWorkers, MaxWorkers]. pacer may be nil.
func NewRunner(exec Executor, workers int, pacer *HostPacer) *Runner {
	return &Runner{exec: exec, workers: min(max(workers, MinWorkers), MaxWorkers), pacer: pacer}
}

// PayloadFor builds the payload for one URL. URL tools take it as input;
// compound tools get it as the "url" field next to the shared fields.
func PayloadFor(desc models.ToolDescriptor, target string, shared map[string]string) models.Payload {
	if desc.InputKind != models.InputCompound {
		return models.Payload{Input: target}
	}
	fields := maps.Clone(shared)
	if fields == nil {
		fields = make(map[string]string, 1)
	}
	fields["url"] = target
	return models.Payload{Fields: fields}
}

// Run executes desc against every URL. Once ctx is cancelled no further
// task starts; tasks already running finish under their own fetch
// timeout. onResult, if set, is called from worker goroutines as each
// item finishes.
func (r *Runner) Run(ctx context.Context, desc models.ToolDescriptor, urls []string, shared map[string]string, onResult func(int, *models.BulkItem)) Summary {
	items := make([]*models.BulkItem, len(urls))

	var (
		mu      sync.Mutex
		summary Summary
	)
	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for i, target := range urls {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if u, err := url.Parse(target); err == nil && u.Host != "" {
				if err := r.pacer.Wait(ctx, u.Host); err != nil {
					return nil
				}
			}

			rec := r.exec.Execute(context.WithoutCancel(ctx), desc.ID, PayloadFor(desc, target, shared))
			item := &models.BulkItem{URL: target, Result: rec}

			mu.Lock()
			items[i] = item
			if rec.OK() {
				summary.Completed++
			} else {
				summary.Failed++
			}
			mu.Unlock()

			if onResult != nil {
				onResult(i, item)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Items = items
	summary.Skipped = len(urls) - summary.Completed - summary.Failed
	return summary
}
