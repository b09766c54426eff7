package transfer

import (
	"context"
	"time"
)

// Repository is the ledger's backing store. Every state change goes through
// Transition, a conditional update that succeeds for exactly one caller.
type Repository interface {
	// Reserve inserts rec in StatePending. Returns ErrCodeConflict when the code
	// is already taken, including by a tombstone.
	Reserve(ctx context.Context, rec *Record) error
	// FetchByCode returns nil, nil when the code is unknown.
	FetchByCode(ctx context.Context, code string) (*Record, error)
	// Activate publishes a pending reservation: it records where the blob
	// lives and moves the record to StateActive.
	Activate(ctx context.Context, code, location string, size int64) (bool, error)
	// Transition moves code from any of the from states to to and reports
	// whether this call performed the change.
	Transition(ctx context.Context, code string, from []State, to State) (bool, error)
	FetchByOwner(ctx context.Context, owner string, now time.Time) (Records, error)
	FetchActive(ctx context.Context, now time.Time) (Records, error)
	// FetchExpired returns up to limit records with expiry <= now that are
	// either active, or pending and created no later than pendingBefore.
	FetchExpired(ctx context.Context, now, pendingBefore time.Time, limit int) (Records, error)
}
