package bulk

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/pagelens/models"
	"github.com/use-agent/pagelens/webhook"
)

// Job is one asynchronous bulk run.
type Job struct {
	ID        string
	Tool      string
	CreatedAt time.Time

	mu        sync.Mutex
	status    string
	items     []*models.BulkItem
	completed int
	failed    int
	skipped   int
	cancel    context.CancelFunc
	cancelled bool
	done      chan struct{}
}

func (j *Job) record(i int, item *models.BulkItem) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.items[i] = item
	if item.Result.OK() {
		j.completed++
	} else {
		j.failed++
	}
}

func (j *Job) finish(s Summary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.items = s.Items
	j.completed, j.failed, j.skipped = s.Completed, s.Failed, s.Skipped
	j.status = s.Status(j.cancelled)
	close(j.done)
}

// Cancel stops the job from starting further tasks.
func (j *Job) Cancel() {
	j.mu.Lock()
	j.cancelled = true
	j.mu.Unlock()
	j.cancel()
}

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Snapshot returns the job's current state.
func (j *Job) Snapshot() models.BulkStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()

	var items []*models.BulkItem
	for _, it := range j.items {
		if it != nil {
			items = append(items, it)
		}
	}
	return models.BulkStatusResponse{
		ID:        j.ID,
		Tool:      j.Tool,
		Status:    j.status,
		Total:     len(j.items),
		Completed: j.completed,
		Failed:    j.failed,
		Skipped:   j.skipped,
		CreatedAt: j.CreatedAt.Unix(),
		Items:     items,
	}
}

// JobStore holds in-flight and finished jobs in memory. Jobs older than the
// TTL are dropped by a background loop.
type JobStore struct {
	jobs sync.Map // id (string) -> *Job
	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

// NewJobStore starts the expiry loop.
func NewJobStore(ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &JobStore{ttl: ttl, done: make(chan struct{})}
	go s.cleanupLoop()
	return s
}

// Get returns a job by id.
func (s *JobStore) Get(id string) (*Job, bool) {
	v, ok := s.jobs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Job), true
}

func (s *JobStore) add(j *Job) {
	s.jobs.Store(j.ID, j)
}

// Stop terminates the expiry loop.
func (s *JobStore) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *JobStore) cleanupLoop() {
	ticker := time.NewTicker(min(s.ttl, 5*time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.ttl)
			s.jobs.Range(func(key, value any) bool {
				if value.(*Job).CreatedAt.Before(cutoff) {
					s.jobs.Delete(key)
				}
				return true
			})
		}
	}
}

// Service starts bulk jobs in the background and notifies webhooks when
// they end.
type Service struct {
	Runner   *Runner
	Store    *JobStore
	Notifier *webhook.Notifier
}

// Start launches desc over urls and returns immediately.
func (s *Service) Start(desc models.ToolDescriptor, urls []string, shared map[string]string, webhookURL string) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:        "bulk-" + randomID(),
		Tool:      desc.ID,
		CreatedAt: time.Now(),
		status:    models.JobRunning,
		items:     make([]*models.BulkItem, len(urls)),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.Store.add(job)

	go func() {
		defer cancel()
		summary := s.Runner.Run(ctx, desc, urls, shared, job.record)
		job.finish(summary)

		snap := job.Snapshot()
		slog.Info("bulk job finished",
			"job_id", job.ID,
			"tool", job.Tool,
			"status", snap.Status,
			"succeeded", snap.Completed,
			"failed", snap.Failed,
			"skipped", snap.Skipped,
			"total", snap.Total,
		)

		if webhookURL != "" && s.Notifier != nil {
			snap.Items = nil
			s.Notifier.DeliverAsync(webhookURL, webhook.NewEvent(webhook.EventBulkCompleted, job.ID, snap))
		}
	}()
	return job
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
