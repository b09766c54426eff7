// Package transfer is an in-process ledger repository.
//
// The map lock is only held to find or insert an entry; state checks and
// flips happen under the entry's own mutex, so different codes never
// serialise on each other.
package transfer

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"devtransfer/internal/domain/transfer"
)

type entry struct {
	mu  sync.Mutex
	rec transfer.Record
}

type Repository struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewRepository() transfer.Repository {
	return &Repository{entries: make(map[string]*entry)}
}

func (r *Repository) Reserve(ctx context.Context, rec *transfer.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[rec.Code]; ok {
		return transfer.ErrCodeConflict
	}
	e := &entry{rec: *rec}
	e.rec.State = transfer.StatePending
	r.entries[rec.Code] = e

	return nil
}

func (r *Repository) FetchByCode(ctx context.Context, code string) (*transfer.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := r.lookup(code)
	if e == nil {
		return nil, nil
	}

	return e.snapshot(), nil
}

func (r *Repository) Activate(ctx context.Context, code, location string, size int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	e := r.lookup(code)
	if e == nil {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec.State != transfer.StatePending {
		return false, nil
	}
	e.rec.Location = location
	e.rec.Size = size
	e.rec.State = transfer.StateActive

	return true, nil
}

func (r *Repository) Transition(ctx context.Context, code string, from []transfer.State, to transfer.State) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	e := r.lookup(code)
	if e == nil {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !slices.Contains(from, e.rec.State) {
		return false, nil
	}
	e.rec.State = to

	return true, nil
}

func (r *Repository) FetchByOwner(ctx context.Context, owner string, now time.Time) (transfer.Records, error) {
	return r.filter(ctx, func(rec *transfer.Record) bool {
		return rec.Owner == owner && rec.State == transfer.StateActive && !rec.IsExpired(now)
	}, 0)
}

func (r *Repository) FetchActive(ctx context.Context, now time.Time) (transfer.Records, error) {
	return r.filter(ctx, func(rec *transfer.Record) bool {
		return rec.State == transfer.StateActive && !rec.IsExpired(now)
	}, 0)
}

func (r *Repository) FetchExpired(ctx context.Context, now, pendingBefore time.Time, limit int) (transfer.Records, error) {
	return r.filter(ctx, func(rec *transfer.Record) bool {
		return rec.IsExpired(now) && sweepable(rec, pendingBefore)
	}, limit)
}

func sweepable(rec *transfer.Record, pendingBefore time.Time) bool {
	switch rec.State {
	case transfer.StateActive:
		return true
	case transfer.StatePending:
		return !rec.CreatedAt.After(pendingBefore)
	}
	return false
}

func (r *Repository) lookup(code string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.entries[code]
}

func (r *Repository) filter(ctx context.Context, keep func(*transfer.Record) bool, limit int) (transfer.Records, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	all := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	r.mu.RUnlock()

	var out transfer.Records
	for _, e := range all {
		rec := e.snapshot()
		if keep(rec) {
			out = append(out, rec)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (e *entry) snapshot() *transfer.Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	copied := e.rec
	return &copied
}
