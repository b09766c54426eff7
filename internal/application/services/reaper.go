package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"devtransfer/internal/domain/blob"
)

const (
	defaultReaperQueue    = 256
	defaultReaperAttempts = 3
	defaultReaperBackoff  = 500 * time.Millisecond
)

type ReaperOptions struct {
	QueueSize int
	Attempts  int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

// Reaper deletes blobs in the background. A blob that survives every attempt
// is left for the orphan sweep.
type Reaper struct {
	store blob.Store
	jobs  chan string
	opts  ReaperOptions
	log   *zap.Logger

	// detached deletes started while the queue was full
	detached sync.WaitGroup
}

func NewReaper(store blob.Store, logger *zap.Logger, opts ReaperOptions) *Reaper {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultReaperQueue
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultReaperAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultReaperBackoff
	}

	return &Reaper{
		store: store,
		jobs:  make(chan string, opts.QueueSize),
		opts:  opts,
		log:   logger.With(zap.String("component", "reaper")),
	}
}

// Schedule never blocks.
func (r *Reaper) Schedule(location string) {
	if location == "" {
		return
	}

	select {
	case r.jobs <- location:
	default:
		r.log.Warn("reaper queue full, deleting inline", zap.String("location", location))
		r.detached.Add(1)
		go func() {
			defer r.detached.Done()
			r.delete(context.Background(), location)
		}()
	}
}

// Run works the queue until ctx is done, then makes one last attempt at
// whatever is still queued.
func (r *Reaper) Run(ctx context.Context) error {
	r.log.Info("starting reaper worker")

	defer func() {
		r.log.Info("reaper worker gracefully stopped")
	}()

	for {
		select {
		case location := <-r.jobs:
			r.delete(ctx, location)
		case <-ctx.Done():
			r.drain()
			r.detached.Wait()
			return nil
		}
	}
}

func (r *Reaper) drain() {
	for {
		select {
		case location := <-r.jobs:
			r.attempt(context.Background(), location)
		default:
			return
		}
	}
}

func (r *Reaper) delete(ctx context.Context, location string) {
	for attempt := 1; attempt <= r.opts.Attempts; attempt++ {
		if r.attempt(ctx, location) {
			return
		}
		if attempt == r.opts.Attempts {
			break
		}

		select {
		case <-time.After(time.Duration(attempt) * r.opts.Backoff):
		case <-ctx.Done():
			return
		}
	}

	r.log.Error("giving up on blob deletion", zap.String("location", location), zap.Int("attempts", r.opts.Attempts))
}

func (r *Reaper) attempt(ctx context.Context, location string) bool {
	err := r.store.Delete(ctx, location)
	if err == nil || errors.Is(err, blob.ErrNotFound) {
		return true
	}

	r.log.Warn("blob deletion failed", zap.String("location", location), zap.Error(err))
	return false
}
