package transfer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "devtransfer/internal/domain/transfer"
)

var columns = []string{"code", "filename", "location", "size", "expiry", "policy", "owner", "state", "created_at"}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, domain.Repository) {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})

	return mock, NewRepository(mock)
}

func TestRepository_Reserve(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &domain.Record{
		Code:      "Zm9vYmFyMTI",
		Filename:  "notes.txt",
		Size:      -1,
		Expiry:    created.Add(time.Hour),
		Policy:    domain.PolicyOneShot,
		Owner:     "alice",
		CreatedAt: created,
	}

	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{"inserted", nil, nil},
		{"duplicate code", &pgconn.PgError{Code: "23505"}, domain.ErrCodeConflict},
		{"other failure", errors.New("connection reset"), errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMock(t)

			exp := mock.ExpectExec(InsertTransfer).
				WithArgs(rec.Code, "notes.txt", "", int64(-1), created.Add(time.Hour).Unix(), "one_shot", "alice", "pending", created.Unix())
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := repo.Reserve(context.Background(), rec)
			switch {
			case tt.wantErr == nil:
				assert.NoError(t, err)
			case errors.Is(tt.wantErr, domain.ErrCodeConflict):
				assert.ErrorIs(t, err, domain.ErrCodeConflict)
			default:
				assert.EqualError(t, err, tt.wantErr.Error())
			}
		})
	}
}

func TestRepository_FetchByCode(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	created := expiry.Add(-time.Hour)

	t.Run("found", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(SelectTransferByCode).
			WithArgs("Zm9vYmFyMTI").
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("Zm9vYmFyMTI", "notes.txt", "Zm/Zm9vYmFyMTI", int64(12), expiry.Unix(), "one_shot", "alice", "active", created.Unix()))

		got, err := repo.FetchByCode(context.Background(), "Zm9vYmFyMTI")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Zm/Zm9vYmFyMTI", got.Location)
		assert.Equal(t, int64(12), got.Size)
		assert.True(t, got.Expiry.Equal(expiry))
		assert.True(t, got.CreatedAt.Equal(created))
		assert.Equal(t, domain.PolicyOneShot, got.Policy)
		assert.Equal(t, domain.StateActive, got.State)
	})

	t.Run("legacy row without policy reads as persistent", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(SelectTransferByCode).
			WithArgs("bGVnYWN5MDE").
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("bGVnYWN5MDE", "old.tar", "bG/bGVnYWN5MDE", int64(1), expiry.Unix(), "", "", "active", created.Unix()))

		got, err := repo.FetchByCode(context.Background(), "bGVnYWN5MDE")
		require.NoError(t, err)
		assert.Equal(t, domain.PolicyPersistent, got.Policy)
		assert.Empty(t, got.Owner)
	})

	t.Run("missing", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(SelectTransferByCode).
			WithArgs("bWlzc2luZzE").
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.FetchByCode(context.Background(), "bWlzc2luZzE")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRepository_Transition(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"won", 1, true},
		{"lost", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMock(t)
			mock.ExpectExec(UpdateTransferState).
				WithArgs("Zm9vYmFyMTI", []string{"active"}, "consumed").
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			ok, err := repo.Transition(context.Background(), "Zm9vYmFyMTI", []domain.State{domain.StateActive}, domain.StateConsumed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestRepository_Activate(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectExec(ActivateTransfer).
		WithArgs("Zm9vYmFyMTI", "Zm/Zm9vYmFyMTI", int64(2048)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.Activate(context.Background(), "Zm9vYmFyMTI", "Zm/Zm9vYmFyMTI", 2048)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepository_FetchExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unbounded limit", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(SelectExpiredTransfers).
			WithArgs(now.Unix(), now.Add(-time.Hour).Unix(), math.MaxInt32).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("ZXhwaXJlZDE", "a", "ZX/ZXhwaXJlZDE", int64(1), now.Unix(), "persistent", "", "active", now.Unix()).
				AddRow("cGVuZGluZzE", "b", "", int64(-1), now.Unix()-5, "persistent", "", "pending", now.Unix()-7200))

		got, err := repo.FetchExpired(context.Background(), now, now.Add(-time.Hour), 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domain.StatePending, got[1].State)
	})

	t.Run("query error", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(SelectExpiredTransfers).
			WithArgs(now.Unix(), now.Unix(), 10).
			WillReturnError(errors.New("timeout"))

		_, err := repo.FetchExpired(context.Background(), now, now, 10)
		assert.EqualError(t, err, "timeout")
	})
}

func TestRepository_FetchByOwner(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock, repo := newMock(t)
	mock.ExpectQuery(SelectTransfersByOwner).
		WithArgs("alice", now.Unix()).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("b3duZXIwMDE", "a.zip", "b3/b3duZXIwMDE", int64(9), now.Unix()+60, "one_shot", "alice", "active", now.Unix()))

	got, err := repo.FetchByOwner(context.Background(), "alice", now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b3duZXIwMDE", got[0].Code)
}
