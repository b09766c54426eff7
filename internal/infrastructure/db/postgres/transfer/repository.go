package transfer

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"devtransfer/internal/domain/transfer"
	"devtransfer/internal/infrastructure/db/postgres"
)

type Repository struct {
	db postgres.DB
}

func NewRepository(db postgres.DB) transfer.Repository {
	return &Repository{db: db}
}

func (r *Repository) Reserve(ctx context.Context, rec *transfer.Record) error {
	m := toDBModel(rec)

	_, err := r.db.Exec(ctx, InsertTransfer,
		m.Code, m.Filename, m.Location, m.Size, m.Expiry, m.Policy, m.Owner, m.State, m.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgUniqueViolation(err) {
			return transfer.ErrCodeConflict
		}
		return err
	}

	return nil
}

func (r *Repository) FetchByCode(ctx context.Context, code string) (*transfer.Record, error) {
	t := new(Transfer)
	err := r.db.QueryRow(ctx, SelectTransferByCode, code).Scan(
		&t.Code,
		&t.Filename,
		&t.Location,
		&t.Size,
		&t.Expiry,
		&t.Policy,
		&t.Owner,
		&t.State,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return fromDBModel(t), nil
}

func (r *Repository) Activate(ctx context.Context, code, location string, size int64) (bool, error) {
	tag, err := r.db.Exec(ctx, ActivateTransfer, code, location, size)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (r *Repository) Transition(ctx context.Context, code string, from []transfer.State, to transfer.State) (bool, error) {
	tag, err := r.db.Exec(ctx, UpdateTransferState, code, statesToStrings(from), string(to))
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (r *Repository) FetchByOwner(ctx context.Context, owner string, now time.Time) (transfer.Records, error) {
	return r.fetch(ctx, SelectTransfersByOwner, owner, now.Unix())
}

func (r *Repository) FetchActive(ctx context.Context, now time.Time) (transfer.Records, error) {
	return r.fetch(ctx, SelectActiveTransfers, now.Unix())
}

func (r *Repository) FetchExpired(ctx context.Context, now, pendingBefore time.Time, limit int) (transfer.Records, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}

	return r.fetch(ctx, SelectExpiredTransfers, now.Unix(), pendingBefore.Unix(), limit)
}

func (r *Repository) fetch(ctx context.Context, query string, args ...any) (transfer.Records, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ts Transfers
	for rows.Next() {
		t := new(Transfer)

		if err = rows.Scan(
			&t.Code,
			&t.Filename,
			&t.Location,
			&t.Size,
			&t.Expiry,
			&t.Policy,
			&t.Owner,
			&t.State,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}

		ts = append(ts, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return fromDBModels(ts), nil
}
