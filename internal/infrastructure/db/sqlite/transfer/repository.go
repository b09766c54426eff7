package transfer

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"devtransfer/internal/domain/transfer"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) transfer.Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*transfer.Record, error) {
	var (
		rec               transfer.Record
		expiry, createdAt int64
		policy, state     string
	)
	if err := s.Scan(
		&rec.Code,
		&rec.Filename,
		&rec.Location,
		&rec.Size,
		&expiry,
		&policy,
		&rec.Owner,
		&state,
		&createdAt,
	); err != nil {
		return nil, err
	}

	rec.Expiry = time.Unix(expiry, 0).UTC()
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.Policy = transfer.ParsePolicy(policy)
	rec.State = transfer.State(state)

	return &rec, nil
}

func (r *Repository) Reserve(ctx context.Context, rec *transfer.Record) error {
	res, err := r.db.ExecContext(ctx, InsertTransfer,
		rec.Code,
		rec.Filename,
		rec.Location,
		rec.Size,
		rec.Expiry.Unix(),
		string(rec.Policy),
		rec.Owner,
		string(transfer.StatePending),
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return transfer.ErrCodeConflict
	}

	return nil
}

func (r *Repository) FetchByCode(ctx context.Context, code string) (*transfer.Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, SelectTransferByCode, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return rec, nil
}

func (r *Repository) Activate(ctx context.Context, code, location string, size int64) (bool, error) {
	return r.exec(ctx, ActivateTransfer, location, size, code)
}

func (r *Repository) Transition(ctx context.Context, code string, from []transfer.State, to transfer.State) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}

	args := make([]any, 0, len(from)+2)
	args = append(args, string(to), code)
	for _, s := range from {
		args = append(args, string(s))
	}

	return r.exec(ctx, updateState(len(from)), args...)
}

func (r *Repository) FetchByOwner(ctx context.Context, owner string, now time.Time) (transfer.Records, error) {
	return r.fetch(ctx, SelectTransfersByOwner, owner, now.Unix())
}

func (r *Repository) FetchActive(ctx context.Context, now time.Time) (transfer.Records, error) {
	return r.fetch(ctx, SelectActiveTransfers, now.Unix())
}

func (r *Repository) FetchExpired(ctx context.Context, now, pendingBefore time.Time, limit int) (transfer.Records, error) {
	if limit <= 0 {
		// sqlite treats a negative LIMIT as unbounded
		limit = -1
	}

	return r.fetch(ctx, SelectExpiredTransfers, now.Unix(), pendingBefore.Unix(), limit)
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (r *Repository) fetch(ctx context.Context, query string, args ...any) (transfer.Records, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out transfer.Records
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
