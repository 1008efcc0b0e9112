package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

const (
	// DefaultWarmInterval paces warm-up so the dictionary site is not hammered
	DefaultWarmInterval = 500 * time.Millisecond
	// DefaultJobRetention is how long a finished job stays queryable
	DefaultJobRetention = time.Hour
)

// WarmRequest lists words to pre-populate with one voice setting
type WarmRequest struct {
	Words []string `json:"words"`
	Voice string   `json:"voice_id"`
	Speed float64  `json:"speed"`
}

// WarmFailure records one word that could not be resolved
type WarmFailure struct {
	Word  string `json:"word"`
	Error string `json:"error"`
}

// WarmReport summarizes a warm-up run
type WarmReport struct {
	Total         int           `json:"total"`
	AlreadyCached int           `json:"already_cached"`
	Generated     int           `json:"generated"`
	Failed        int           `json:"failed"`
	Failures      []WarmFailure `json:"failures,omitempty"`
}

// JobStatus is the lifecycle state of a background warm job
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

// WarmJob is a background warm-up tracked by id
type WarmJob struct {
	ID         string     `json:"id"`
	Status     JobStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Report     WarmReport `json:"report"`
}

// ProgressFunc is called after each word with the running report
type ProgressFunc func(word string, outcome string, report WarmReport)

// CacheWarmer pre-populates the blob store for a word list
type CacheWarmer struct {
	service   *ResolutionService
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*WarmJob
	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewCacheWarmer creates a warmer. A negative interval selects DefaultWarmInterval; zero disables pacing.
func NewCacheWarmer(service *ResolutionService, interval time.Duration, logger *zap.Logger) (*CacheWarmer, error) {
	if service == nil {
		return nil, errors.New("resolution service is required")
	}
	if interval < 0 {
		interval = DefaultWarmInterval
	}
	base, stop := context.WithCancel(context.Background())
	return &CacheWarmer{
		service:   service,
		interval:  interval,
		retention: DefaultJobRetention,
		logger:    logger,
		jobs:      make(map[string]*WarmJob),
		base:      base,
		stop:      stop,
	}, nil
}

// UniqueWords trims words and drops blanks and entries that share a cache key under
// voice and speed, keeping the first-seen text as given. Phrases keep their case since
// it is part of their key.
func UniqueWords(words []string, voice string, speed float64) []string {
	seen := make(map[cachekey.Key]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		req, err := entities.NewResolutionRequest(w, voice, speed)
		if err != nil {
			continue
		}
		key := cachekey.Derive(req.Text, req.Voice, req.Speed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, req.Text)
	}
	return out
}

// Warm resolves every unique word, skipping those already cached
func (w *CacheWarmer) Warm(ctx context.Context, req WarmRequest, progress ProgressFunc) WarmReport {
	words := UniqueWords(req.Words, req.Voice, req.Speed)
	report := WarmReport{Total: len(words)}

	var limiter *rate.Limiter
	if w.interval > 0 {
		limiter = rate.NewLimiter(rate.Every(w.interval), 1)
	}

	for _, word := range words {
		if ctx.Err() != nil {
			break
		}

		outcome := w.warmOne(ctx, word, req, limiter, &report)
		w.logger.Info("Warmed word",
			zap.String("word", word),
			zap.String("outcome", outcome),
			zap.Int("done", report.AlreadyCached+report.Generated+report.Failed),
			zap.Int("total", report.Total))
		if progress != nil {
			progress(word, outcome, report)
		}
	}

	return report
}

func (w *CacheWarmer) warmOne(ctx context.Context, word string, req WarmRequest, limiter *rate.Limiter, report *WarmReport) string {
	cached, err := w.service.IsCached(ctx, word, req.Voice, req.Speed)
	if err == nil && cached {
		report.AlreadyCached++
		return "cached"
	}

	// only outbound work is paced
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, WarmFailure{Word: word, Error: err.Error()})
			return "failed"
		}
	}

	result, err := w.service.ResolveToURL(ctx, word, req.Voice, req.Speed)
	if err != nil {
		report.Failed++
		report.Failures = append(report.Failures, WarmFailure{Word: word, Error: err.Error()})
		return "failed"
	}
	if !result.Persisted {
		report.Failed++
		report.Failures = append(report.Failures, WarmFailure{Word: word, Error: "audio could not be stored"})
		return "failed"
	}

	report.Generated++
	return "generated"
}

// StartJob runs Warm in the background and returns the job id
func (w *CacheWarmer) StartJob(req WarmRequest) string {
	job := &WarmJob{
		ID:        uuid.New().String(),
		Status:    JobRunning,
		StartedAt: time.Now(),
		Report:    WarmReport{Total: len(UniqueWords(req.Words, req.Voice, req.Speed))},
	}

	w.mu.Lock()
	w.evictLocked(job.StartedAt)
	w.jobs[job.ID] = job
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		report := w.Warm(w.base, req, func(_ string, _ string, r WarmReport) {
			w.mu.Lock()
			job.Report = r
			w.mu.Unlock()
		})

		finished := time.Now()
		w.mu.Lock()
		job.Report = report
		job.FinishedAt = &finished
		job.Status = JobCompleted
		if w.base.Err() != nil {
			job.Status = JobCancelled
		}
		w.mu.Unlock()
	}()

	w.logger.Info("Started warm job", zap.String("jobID", job.ID), zap.Int("words", job.Report.Total))
	return job.ID
}

// evictLocked drops jobs that finished more than retention before now. Caller holds mu.
func (w *CacheWarmer) evictLocked(now time.Time) {
	for id, job := range w.jobs {
		if job.FinishedAt != nil && now.Sub(*job.FinishedAt) > w.retention {
			delete(w.jobs, id)
		}
	}
}

// Job returns a snapshot of the job with id
func (w *CacheWarmer) Job(id string) (WarmJob, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	job, ok := w.jobs[id]
	if !ok {
		return WarmJob{}, false
	}
	snapshot := *job
	snapshot.Report.Failures = append([]WarmFailure(nil), job.Report.Failures...)
	return snapshot, true
}

// Shutdown cancels running jobs and waits for them to stop
func (w *CacheWarmer) Shutdown(ctx context.Context) error {
	w.stop()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
