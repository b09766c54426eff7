// Package repotest holds the behaviour every transfer.Repository must share.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devtransfer/internal/domain/transfer"
)

// Base is a whole second so engines storing unix seconds round-trip it exactly.
var Base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(code, owner string, policy transfer.Policy, expiry time.Time) *transfer.Record {
	return &transfer.Record{
		Code:      code,
		Filename:  code + ".bin",
		Size:      -1,
		Expiry:    expiry,
		Policy:    policy,
		Owner:     owner,
		CreatedAt: Base,
	}
}

func reserveActive(t *testing.T, repo transfer.Repository, rec *transfer.Record) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Reserve(ctx, rec))
	ok, err := repo.Activate(ctx, rec.Code, rec.Code[:2]+"/"+rec.Code, 42)
	require.NoError(t, err)
	require.True(t, ok)
}

func codes(recs transfer.Records) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Code)
	}
	return out
}

// Run exercises newRepo against the repository contract. newRepo must return
// an empty repository on every call.
func Run(t *testing.T, newRepo func(t *testing.T) transfer.Repository) {
	t.Run("reserve and fetch", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		in := record("fetch000001", "alice", transfer.PolicyOneShot, Base.Add(time.Hour))

		require.NoError(t, repo.Reserve(ctx, in))

		got, err := repo.FetchByCode(ctx, in.Code)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, in.Code, got.Code)
		assert.Equal(t, in.Filename, got.Filename)
		assert.Equal(t, int64(-1), got.Size)
		assert.True(t, in.Expiry.Equal(got.Expiry), "expiry %s != %s", in.Expiry, got.Expiry)
		assert.True(t, in.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", in.CreatedAt, got.CreatedAt)
		assert.Equal(t, transfer.PolicyOneShot, got.Policy)
		assert.Equal(t, "alice", got.Owner)
		assert.Equal(t, transfer.StatePending, got.State)
	})

	t.Run("activate publishes a reservation once", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		in := record("activ000001", "", transfer.PolicyPersistent, Base.Add(time.Hour))
		require.NoError(t, repo.Reserve(ctx, in))

		ok, err := repo.Activate(ctx, in.Code, "ac/activ000001", 1024)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.FetchByCode(ctx, in.Code)
		require.NoError(t, err)
		assert.Equal(t, transfer.StateActive, got.State)
		assert.Equal(t, "ac/activ000001", got.Location)
		assert.Equal(t, int64(1024), got.Size)

		ok, err = repo.Activate(ctx, in.Code, "elsewhere", 1)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.Activate(ctx, "missing0001", "x", 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown code", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.FetchByCode(context.Background(), "missing0001")
		require.NoError(t, err)
		assert.Nil(t, got)

		ok, err := repo.Transition(context.Background(), "missing0001", []transfer.State{transfer.StateActive}, transfer.StateDeleted)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("duplicate code conflicts even after retirement", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		rec := record("dup00000001", "", transfer.PolicyPersistent, Base.Add(time.Hour))
		reserveActive(t, repo, rec)

		assert.ErrorIs(t, repo.Reserve(ctx, rec), transfer.ErrCodeConflict)

		ok, err := repo.Transition(ctx, rec.Code, []transfer.State{transfer.StateActive}, transfer.StateDeleted)
		require.NoError(t, err)
		require.True(t, ok)

		assert.ErrorIs(t, repo.Reserve(ctx, rec), transfer.ErrCodeConflict)
	})

	t.Run("transition is conditional", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		rec := record("cond0000001", "", transfer.PolicyOneShot, Base.Add(time.Hour))
		reserveActive(t, repo, rec)

		ok, err := repo.Transition(ctx, rec.Code, []transfer.State{transfer.StateActive}, transfer.StateConsumed)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Transition(ctx, rec.Code, []transfer.State{transfer.StateActive}, transfer.StateConsumed)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.FetchByCode(ctx, rec.Code)
		require.NoError(t, err)
		assert.Equal(t, transfer.StateConsumed, got.State)
	})

	t.Run("concurrent claims have one winner", func(t *testing.T) {
		repo := newRepo(t)
		rec := record("race0000001", "", transfer.PolicyOneShot, Base.Add(time.Hour))
		reserveActive(t, repo, rec)

		const callers = 50
		var (
			wins  atomic.Int32
			wg    sync.WaitGroup
			start = make(chan struct{})
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				ok, err := repo.Transition(context.Background(), rec.Code, []transfer.State{transfer.StateActive}, transfer.StateConsumed)
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("owner and active listings", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := Base.Add(time.Minute)

		reserveActive(t, repo, record("own00000001", "alice", transfer.PolicyPersistent, Base.Add(time.Hour)))
		reserveActive(t, repo, record("own00000002", "alice", transfer.PolicyOneShot, Base.Add(time.Hour)))
		reserveActive(t, repo, record("own00000003", "bob", transfer.PolicyPersistent, Base.Add(time.Hour)))
		// expired but not swept yet
		reserveActive(t, repo, record("own00000004", "alice", transfer.PolicyPersistent, Base))
		// pending reservations are not listed
		require.NoError(t, repo.Reserve(ctx, record("own00000005", "alice", transfer.PolicyPersistent, Base.Add(time.Hour))))
		consumed := record("own00000006", "alice", transfer.PolicyOneShot, Base.Add(time.Hour))
		reserveActive(t, repo, consumed)
		_, err := repo.Transition(ctx, consumed.Code, []transfer.State{transfer.StateActive}, transfer.StateConsumed)
		require.NoError(t, err)

		mine, err := repo.FetchByOwner(ctx, "alice", now)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"own00000001", "own00000002"}, codes(mine))

		none, err := repo.FetchByOwner(ctx, "carol", now)
		require.NoError(t, err)
		assert.Empty(t, none)

		all, err := repo.FetchActive(ctx, now)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"own00000001", "own00000002", "own00000003"}, codes(all))
	})

	t.Run("expired listing", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := Base.Add(10 * time.Minute)

		for i := 1; i <= 3; i++ {
			reserveActive(t, repo, record(fmt.Sprintf("exp0000000%d", i), "", transfer.PolicyPersistent, Base.Add(time.Duration(i)*time.Minute)))
		}
		for i := 1; i <= 2; i++ {
			reserveActive(t, repo, record(fmt.Sprintf("act0000000%d", i), "", transfer.PolicyPersistent, Base.Add(time.Hour)))
		}
		require.NoError(t, repo.Reserve(ctx, record("pend0000001", "", transfer.PolicyPersistent, Base)))
		fresh := record("pend0000002", "", transfer.PolicyPersistent, Base.Add(-time.Minute))
		fresh.CreatedAt = Base.Add(5 * time.Minute)
		require.NoError(t, repo.Reserve(ctx, fresh))
		gone := record("gone0000001", "", transfer.PolicyPersistent, Base)
		reserveActive(t, repo, gone)
		_, err := repo.Transition(ctx, gone.Code, []transfer.State{transfer.StateActive}, transfer.StateDeleted)
		require.NoError(t, err)

		pendingBefore := Base.Add(time.Minute)
		expired, err := repo.FetchExpired(ctx, now, pendingBefore, 100)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"exp00000001", "exp00000002", "exp00000003", "pend0000001"}, codes(expired))

		// the fresh reservation sorts first by expiry but must not take a slot
		limited, err := repo.FetchExpired(ctx, now, pendingBefore, 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
		assert.NotContains(t, codes(limited), "pend0000002")

		all, err := repo.FetchExpired(ctx, now, now, 0)
		require.NoError(t, err)
		assert.Contains(t, codes(all), "pend0000002")
	})
}
