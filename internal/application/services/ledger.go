package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"devtransfer/internal/application/ports"
	"devtransfer/internal/domain/blob"
	"devtransfer/internal/domain/transfer"
)

const (
	defaultMaxAttempts  = 5
	defaultSweepBatch   = 500
	defaultPendingGrace = time.Hour
)

type LedgerOptions struct {
	// MaxTTL bounds the ttl of new transfers, zero means unbounded.
	MaxTTL time.Duration
	// MaxAttempts is how many fresh codes Create tries before giving up.
	MaxAttempts int
	SweepBatch  int
	// PendingGrace is how long an unpublished reservation may live before a
	// sweep retires it. Uploads that outlast their own ttl still publish.
	PendingGrace time.Duration
}

type LedgerOption func(*LedgerService)

func WithClock(now func() time.Time) LedgerOption {
	return func(ls *LedgerService) { ls.now = now }
}

func WithCodeGenerator(gen CodeGenerator) LedgerOption {
	return func(ls *LedgerService) { ls.codes = gen }
}

func WithEventSinks(sinks ...ports.EventSink) LedgerOption {
	return func(ls *LedgerService) { ls.sinks = append(ls.sinks, sinks...) }
}

type LedgerService struct {
	repo     transfer.Repository
	store    blob.Store
	reaper   ports.BlobReaper
	sinks    []ports.EventSink
	codes    CodeGenerator
	now      func() time.Time
	opts     LedgerOptions
	log      *zap.Logger
	mCounter *prometheus.CounterVec
}

func NewLedgerService(
	repo transfer.Repository,
	store blob.Store,
	reaper ports.BlobReaper,
	mCounter *prometheus.CounterVec,
	logger *zap.Logger,
	opts LedgerOptions,
	options ...LedgerOption,
) *LedgerService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.SweepBatch <= 0 {
		opts.SweepBatch = defaultSweepBatch
	}
	if opts.PendingGrace <= 0 {
		opts.PendingGrace = defaultPendingGrace
	}

	ls := &LedgerService{
		repo:     repo,
		store:    store,
		reaper:   reaper,
		codes:    NewCodeGenerator(DefaultCodeBytes),
		now:      time.Now,
		opts:     opts,
		log:      logger.With(zap.String("component", "ledger")),
		mCounter: mCounter,
	}
	for _, o := range options {
		o(ls)
	}

	return ls
}

func (ls *LedgerService) Create(ctx context.Context, req transfer.CreateRequest, body io.Reader) (*transfer.Record, error) {
	if err := ls.validate(req); err != nil {
		return nil, err
	}

	rec, err := ls.reserve(ctx, req)
	if err != nil {
		return nil, err
	}

	location, written, err := ls.store.Put(ctx, rec.Code, body)
	if err != nil {
		ls.retire(ctx, rec.Code, transfer.StatePending, "")
		ls.mCounter.WithLabelValues("transfers_store_failed_total").Inc()
		return nil, fmt.Errorf("%w: %w", transfer.ErrIOFailure, err)
	}

	if req.Size >= 0 && written != req.Size {
		ls.retire(ctx, rec.Code, transfer.StatePending, location)
		return nil, fmt.Errorf("%w: %w: declared %d bytes, received %d",
			transfer.ErrIOFailure, transfer.ErrSizeMismatch, req.Size, written)
	}

	ok, err := ls.repo.Activate(ctx, rec.Code, location, written)
	if err != nil || !ok {
		ls.retire(ctx, rec.Code, transfer.StatePending, location)
		if err == nil {
			err = errors.New("reservation retired before publish")
		}
		return nil, fmt.Errorf("%w: activate %s: %w", transfer.ErrIOFailure, rec.Code, err)
	}

	rec.Location = location
	rec.Size = written
	rec.State = transfer.StateActive

	ls.emit(transfer.EventCreated, rec, rec.Owner)
	ls.mCounter.WithLabelValues("transfers_created_total").Inc()

	return rec, nil
}

func (ls *LedgerService) validate(req transfer.CreateRequest) error {
	if strings.TrimSpace(req.Filename) == "" {
		return fmt.Errorf("%w: empty filename", transfer.ErrInvalidRequest)
	}
	if !req.Policy.Valid() {
		return fmt.Errorf("%w: unknown policy %q", transfer.ErrInvalidRequest, req.Policy)
	}
	if req.TTL < 0 {
		return fmt.Errorf("%w: negative ttl %s", transfer.ErrInvalidTTL, req.TTL)
	}
	if ls.opts.MaxTTL > 0 && req.TTL > ls.opts.MaxTTL {
		return fmt.Errorf("%w: ttl %s exceeds %s", transfer.ErrInvalidTTL, req.TTL, ls.opts.MaxTTL)
	}

	return nil
}

// reserve stores a pending record under a fresh code, drawing again on collision.
func (ls *LedgerService) reserve(ctx context.Context, req transfer.CreateRequest) (*transfer.Record, error) {
	now := ls.now().UTC()

	for attempt := 1; attempt <= ls.opts.MaxAttempts; attempt++ {
		code, err := ls.codes()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", transfer.ErrIOFailure, err)
		}

		rec := &transfer.Record{
			Code:      code,
			Filename:  req.Filename,
			Size:      req.Size,
			Expiry:    now.Add(req.TTL).Truncate(time.Second),
			Policy:    req.Policy,
			Owner:     req.Owner,
			State:     transfer.StatePending,
			CreatedAt: now.Truncate(time.Second),
		}

		err = ls.repo.Reserve(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, transfer.ErrCodeConflict) {
			return nil, fmt.Errorf("%w: reserve: %w", transfer.ErrIOFailure, err)
		}

		ls.log.Warn("transfer code collision", zap.Int("attempt", attempt))
		ls.mCounter.WithLabelValues("transfer_code_collisions_total").Inc()
	}

	return nil, fmt.Errorf("%w: no free code after %d attempts", transfer.ErrIOFailure, ls.opts.MaxAttempts)
}

// retire tombstones a reservation that never published and hands any
// written blob to the reaper. It runs detached from ctx so a cancelled
// upload still cleans up.
func (ls *LedgerService) retire(ctx context.Context, code string, from transfer.State, location string) {
	ctx = context.WithoutCancel(ctx)

	if _, err := ls.repo.Transition(ctx, code, []transfer.State{from}, transfer.StateDeleted); err != nil {
		ls.log.Error("failed to retire reservation", zap.String("code", code), zap.Error(err))
	}
	if location != "" {
		ls.reaper.Schedule(location)
	}
}

func (ls *LedgerService) ResolveForDownload(ctx context.Context, code string) (*transfer.Resolution, error) {
	rec, err := ls.repo.FetchByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", transfer.ErrIOFailure, code, err)
	}
	if rec == nil {
		return nil, transfer.ErrNotFound
	}

	switch rec.State {
	case transfer.StateExpired:
		return nil, transfer.ErrExpired
	case transfer.StateActive:
	default:
		return nil, transfer.ErrNotFound
	}

	if rec.IsExpired(ls.now()) {
		won, err := ls.repo.Transition(ctx, code, []transfer.State{transfer.StateActive}, transfer.StateExpired)
		if err != nil {
			return nil, fmt.Errorf("%w: expire %s: %w", transfer.ErrIOFailure, code, err)
		}
		if won {
			ls.reaper.Schedule(rec.Location)
			ls.emit(transfer.EventExpired, rec, "")
		}
		return nil, transfer.ErrExpired
	}

	if rec.Policy == transfer.PolicyOneShot {
		won, err := ls.repo.Transition(ctx, code, []transfer.State{transfer.StateActive}, transfer.StateConsumed)
		if err != nil {
			return nil, fmt.Errorf("%w: consume %s: %w", transfer.ErrIOFailure, code, err)
		}
		if !won {
			return nil, transfer.ErrNotFound
		}
		ls.emit(transfer.EventConsumed, rec, "")
		ls.mCounter.WithLabelValues("transfers_consumed_total").Inc()
	}

	ls.mCounter.WithLabelValues("transfers_resolved_total").Inc()

	return rec.Resolution(), nil
}

func (ls *LedgerService) Open(ctx context.Context, res *transfer.Resolution) (io.ReadCloser, error) {
	rc, err := ls.store.Open(ctx, res.Location)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("%w: blob for %s: %w", transfer.ErrNotFound, res.Code, err)
		}
		return nil, fmt.Errorf("%w: %w", transfer.ErrIOFailure, err)
	}

	return rc, nil
}

func (ls *LedgerService) Release(_ context.Context, res *transfer.Resolution) {
	if res == nil || res.Policy != transfer.PolicyOneShot {
		return
	}
	ls.reaper.Schedule(res.Location)
}

func (ls *LedgerService) ListByOwner(ctx context.Context, owner string) (transfer.Records, error) {
	recs, err := ls.repo.FetchByOwner(ctx, owner, ls.now())
	if err != nil {
		return nil, fmt.Errorf("%w: list by owner: %w", transfer.ErrIOFailure, err)
	}

	return recs, nil
}

func (ls *LedgerService) ListActive(ctx context.Context) (transfer.Records, error) {
	recs, err := ls.repo.FetchActive(ctx, ls.now())
	if err != nil {
		return nil, fmt.Errorf("%w: list active: %w", transfer.ErrIOFailure, err)
	}

	return recs, nil
}

func (ls *LedgerService) Delete(ctx context.Context, code, requester string) error {
	rec, err := ls.repo.FetchByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: fetch %s: %w", transfer.ErrIOFailure, code, err)
	}
	if rec == nil || rec.State == transfer.StateDeleted {
		return transfer.ErrNotFound
	}

	won, err := ls.repo.Transition(ctx, code, []transfer.State{
		transfer.StatePending,
		transfer.StateActive,
		transfer.StateConsumed,
		transfer.StateExpired,
	}, transfer.StateDeleted)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", transfer.ErrIOFailure, code, err)
	}
	if !won {
		return transfer.ErrNotFound
	}

	if rec.Location != "" {
		ls.reaper.Schedule(rec.Location)
	}
	ls.emit(transfer.EventDeleted, rec, requester)
	ls.mCounter.WithLabelValues("transfers_deleted_total").Inc()

	ls.log.Info("transfer deleted", zap.String("code", code), zap.String("requester", requester))

	return nil
}

// SweepExpired retires every record past its expiry and returns how many
// transitions this call won. Pending reservations are only retired once
// they are older than PendingGrace.
func (ls *LedgerService) SweepExpired(ctx context.Context) (int, error) {
	now := ls.now()
	pendingBefore := now.Add(-ls.opts.PendingGrace)
	total := 0

	for {
		recs, err := ls.repo.FetchExpired(ctx, now, pendingBefore, ls.opts.SweepBatch)
		if err != nil {
			return total, fmt.Errorf("%w: fetch expired: %w", transfer.ErrIOFailure, err)
		}

		won := 0
		for _, rec := range recs {
			ok, err := ls.sweepOne(ctx, rec)
			if err != nil {
				return total + won, err
			}
			if ok {
				won++
			}
		}
		total += won

		if len(recs) < ls.opts.SweepBatch || won == 0 {
			return total, nil
		}
	}
}

func (ls *LedgerService) sweepOne(ctx context.Context, rec *transfer.Record) (bool, error) {
	switch rec.State {
	case transfer.StatePending:
		won, err := ls.repo.Transition(ctx, rec.Code, []transfer.State{transfer.StatePending}, transfer.StateDeleted)
		if err != nil {
			return false, fmt.Errorf("%w: retire %s: %w", transfer.ErrIOFailure, rec.Code, err)
		}
		return won, nil

	case transfer.StateActive:
		won, err := ls.repo.Transition(ctx, rec.Code, []transfer.State{transfer.StateActive}, transfer.StateExpired)
		if err != nil {
			return false, fmt.Errorf("%w: expire %s: %w", transfer.ErrIOFailure, rec.Code, err)
		}
		if won {
			ls.reaper.Schedule(rec.Location)
			ls.emit(transfer.EventExpired, rec, "")
		}
		return won, nil
	}

	return false, nil
}

// SweepOrphans deletes blobs older than grace that no pending or active
// record refers to.
func (ls *LedgerService) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := ls.now().Add(-grace)

	var orphans []string
	err := ls.store.Walk(ctx, func(info blob.Info) error {
		if info.ModTime.After(cutoff) {
			return nil
		}

		rec, err := ls.repo.FetchByCode(ctx, info.ID)
		if err != nil {
			return err
		}
		if rec != nil && (rec.State == transfer.StatePending || rec.State == transfer.StateActive) {
			return nil
		}

		orphans = append(orphans, info.Location)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: walk blobs: %w", transfer.ErrIOFailure, err)
	}

	removed := 0
	for _, location := range orphans {
		err := ls.store.Delete(ctx, location)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, blob.ErrNotFound):
		default:
			ls.log.Warn("failed to delete orphan blob", zap.String("location", location), zap.Error(err))
		}
	}

	return removed, nil
}

func (ls *LedgerService) emit(kind transfer.EventKind, rec *transfer.Record, actor string) {
	if len(ls.sinks) == 0 {
		return
	}

	e := transfer.NewEvent(kind, rec, actor, ls.now().UTC())
	for _, s := range ls.sinks {
		s.Emit(e)
	}
}
