package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"devtransfer/internal/application/ports"
	"devtransfer/internal/infrastructure/metrics"
)

// Sweeper periodically retires expired transfers and removes orphan blobs.
type Sweeper struct {
	ledger   ports.LedgerService
	interval time.Duration
	grace    time.Duration
	metrics  *metrics.Sweeper
	log      *zap.Logger

	mu sync.Mutex
}

func NewSweeper(
	ledger ports.LedgerService,
	interval, grace time.Duration,
	m *metrics.Sweeper,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		ledger:   ledger,
		interval: interval,
		grace:    grace,
		metrics:  m,
		log:      logger.With(zap.String("component", "sweeper")),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("starting sweeper", zap.Duration("interval", s.interval))

	s.runLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper gracefully stopped")
			return nil
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Sweeper) runLogged(ctx context.Context) {
	if _, _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("sweep failed", zap.Error(err))
	}
}

// RunOnce is safe to call from several goroutines; passes never overlap.
func (s *Sweeper) RunOnce(ctx context.Context) (expired, orphans int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.metrics.Runs.Inc()
	defer func() {
		s.metrics.Duration.Observe(time.Since(start).Seconds())
		s.metrics.Expired.Add(float64(expired))
		s.metrics.Orphans.Add(float64(orphans))
		if err != nil {
			s.metrics.Failures.Inc()
		}
	}()

	expired, err = s.ledger.SweepExpired(ctx)
	if err != nil {
		return expired, 0, err
	}

	orphans, err = s.ledger.SweepOrphans(ctx, s.grace)
	if err != nil {
		return expired, orphans, err
	}

	s.log.Info("sweep finished",
		zap.Int("expired", expired),
		zap.Int("orphans", orphans),
		zap.Duration("duration", time.Since(start)),
	)

	return expired, orphans, nil
}
