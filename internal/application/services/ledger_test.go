package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devtransfer/internal/domain/blob"
	"devtransfer/internal/domain/transfer"
	"devtransfer/internal/infrastructure/blobstore/filestore"
	memory "devtransfer/internal/infrastructure/db/memory/transfer"
)

type fakeReaper struct {
	mu        sync.Mutex
	scheduled []string
}

func (f *fakeReaper) Schedule(location string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, location)
}

func (f *fakeReaper) locations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scheduled...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []transfer.Event
}

func (s *recordingSink) Emit(e transfer.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) kinds() []transfer.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transfer.EventKind, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Kind)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// failingStore overrides Put and leaves the rest to the embedded store.
type failingStore struct {
	blob.Store
	PutFunc func(ctx context.Context, id string, r io.Reader) (string, int64, error)
}

func (f *failingStore) Put(ctx context.Context, id string, r io.Reader) (string, int64, error) {
	return f.PutFunc(ctx, id, r)
}

type ledgerFixture struct {
	ledger *LedgerService
	repo   transfer.Repository
	store  *filestore.Store
	reaper *fakeReaper
	sink   *recordingSink
	clock  *fakeClock
}

func newLedgerFixture(t *testing.T, opts LedgerOptions, options ...LedgerOption) *ledgerFixture {
	t.Helper()

	store, err := filestore.New(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	f := &ledgerFixture{
		repo:   memory.NewRepository(),
		store:  store,
		reaper: &fakeReaper{},
		sink:   &recordingSink{},
		clock:  &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	options = append([]LedgerOption{WithClock(f.clock.Now), WithEventSinks(f.sink)}, options...)
	f.ledger = NewLedgerService(f.repo, f.store, f.reaper, testCounter(), zap.NewNop(), opts, options...)

	return f
}

func testCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_counters"}, []string{"result"})
}

func (f *ledgerFixture) create(t *testing.T, policy transfer.Policy, ttl time.Duration, body []byte) *transfer.Record {
	t.Helper()

	rec, err := f.ledger.Create(context.Background(), transfer.CreateRequest{
		Filename: "payload.bin",
		Size:     int64(len(body)),
		Owner:    "alice",
		TTL:      ttl,
		Policy:   policy,
	}, bytes.NewReader(body))
	require.NoError(t, err)

	return rec
}

func (f *ledgerFixture) state(t *testing.T, code string) transfer.State {
	t.Helper()

	rec, err := f.repo.FetchByCode(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, rec)

	return rec.State
}

func (f *ledgerFixture) read(t *testing.T, res *transfer.Resolution) []byte {
	t.Helper()

	rc, err := f.ledger.Open(context.Background(), res)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)

	return got
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestLedger_CreateRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 4 << 10, 5 << 20}

	for _, size := range sizes {
		t.Run(fmt.Sprintf("%d bytes", size), func(t *testing.T) {
			f := newLedgerFixture(t, LedgerOptions{})
			body := randomBytes(t, size)

			rec := f.create(t, transfer.PolicyPersistent, time.Hour, body)
			assert.Equal(t, transfer.StateActive, rec.State)
			assert.Equal(t, int64(size), rec.Size)
			assert.Equal(t, "payload.bin", rec.Filename)
			assert.True(t, f.clock.Now().Add(time.Hour).Equal(rec.Expiry))

			res, err := f.ledger.ResolveForDownload(context.Background(), rec.Code)
			require.NoError(t, err)
			assert.Equal(t, rec.Filename, res.Filename)

			assert.True(t, bytes.Equal(body, f.read(t, res)))
		})
	}
}

func TestLedger_CreateUnknownSize(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})

	rec, err := f.ledger.Create(context.Background(), transfer.CreateRequest{
		Filename: "stream.log",
		Size:     -1,
		TTL:      time.Minute,
		Policy:   transfer.PolicyPersistent,
	}, strings.NewReader("streamed"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), rec.Size)
}

func TestLedger_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     transfer.CreateRequest
		wantErr error
	}{
		{
			name:    "empty filename",
			req:     transfer.CreateRequest{Filename: "  ", TTL: time.Minute, Policy: transfer.PolicyOneShot},
			wantErr: transfer.ErrInvalidRequest,
		},
		{
			name:    "unknown policy",
			req:     transfer.CreateRequest{Filename: "a", TTL: time.Minute, Policy: "forever"},
			wantErr: transfer.ErrInvalidRequest,
		},
		{
			name:    "negative ttl",
			req:     transfer.CreateRequest{Filename: "a", TTL: -time.Second, Policy: transfer.PolicyOneShot},
			wantErr: transfer.ErrInvalidTTL,
		},
		{
			name:    "ttl above max",
			req:     transfer.CreateRequest{Filename: "a", TTL: 48 * time.Hour, Policy: transfer.PolicyOneShot},
			wantErr: transfer.ErrInvalidTTL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t, LedgerOptions{MaxTTL: 24 * time.Hour})

			rec, err := f.ledger.Create(context.Background(), tt.req, strings.NewReader("x"))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, rec)

			active, err := f.repo.FetchActive(context.Background(), f.clock.Now())
			require.NoError(t, err)
			assert.Empty(t, active)
		})
	}
}

// A one-shot link works exactly once.
func TestLedger_OneShotConsumedOnce(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	rec := f.create(t, transfer.PolicyOneShot, time.Hour, []byte("secret"))
	ctx := context.Background()

	res, err := f.ledger.ResolveForDownload(ctx, rec.Code)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), f.read(t, res))
	assert.Equal(t, transfer.StateConsumed, f.state(t, rec.Code))

	// the blob stays readable until the stream is released
	assert.Empty(t, f.reaper.locations())
	f.ledger.Release(ctx, res)
	assert.Equal(t, []string{rec.Location}, f.reaper.locations())

	_, err = f.ledger.ResolveForDownload(ctx, rec.Code)
	assert.ErrorIs(t, err, transfer.ErrNotFound)

	assert.Equal(t, []transfer.EventKind{transfer.EventCreated, transfer.EventConsumed}, f.sink.kinds())
}

// A persistent link created with ttl 0 is already expired, and
// its blob is released exactly once.
func TestLedger_PersistentZeroTTL(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	rec := f.create(t, transfer.PolicyPersistent, 0, []byte("gone"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.ledger.ResolveForDownload(ctx, rec.Code)
		assert.ErrorIs(t, err, transfer.ErrExpired)
	}

	assert.Equal(t, transfer.StateExpired, f.state(t, rec.Code))
	assert.Equal(t, []string{rec.Location}, f.reaper.locations())
}

func TestLedger_PersistentUntilExpiry(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	rec := f.create(t, transfer.PolicyPersistent, time.Minute, []byte("shared"))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := f.ledger.ResolveForDownload(ctx, rec.Code)
		require.NoError(t, err)
		assert.Equal(t, []byte("shared"), f.read(t, res))
		f.ledger.Release(ctx, res)
	}
	assert.Empty(t, f.reaper.locations())

	f.clock.Advance(time.Minute)

	for i := 0; i < 2; i++ {
		_, err := f.ledger.ResolveForDownload(ctx, rec.Code)
		assert.ErrorIs(t, err, transfer.ErrExpired)
	}
	assert.Equal(t, []string{rec.Location}, f.reaper.locations())
}

// Concurrent downloads of a one-shot link have one winner.
func TestLedger_OneShotConcurrentResolves(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	rec := f.create(t, transfer.PolicyOneShot, time.Hour, []byte("race"))

	const callers = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		notFound int
		start    = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.ledger.ResolveForDownload(context.Background(), rec.Code)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, transfer.ErrNotFound):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, notFound)
}

func TestLedger_ResolveUnknownAndPending(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	ctx := context.Background()

	_, err := f.ledger.ResolveForDownload(ctx, "bm9wZTAwMDE")
	assert.ErrorIs(t, err, transfer.ErrNotFound)

	require.NoError(t, f.repo.Reserve(ctx, &transfer.Record{
		Code:     "cGVuZGluZzE",
		Filename: "half.bin",
		Size:     -1,
		Expiry:   f.clock.Now().Add(time.Hour),
		Policy:   transfer.PolicyPersistent,
	}))
	_, err = f.ledger.ResolveForDownload(ctx, "cGVuZGluZzE")
	assert.ErrorIs(t, err, transfer.ErrNotFound)
}

func TestLedger_SizeMismatch(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{}, WithCodeGenerator(func() (string, error) { return "c2l6ZW1pczE", nil }))

	rec, err := f.ledger.Create(context.Background(), transfer.CreateRequest{
		Filename: "short.bin",
		Size:     10,
		TTL:      time.Hour,
		Policy:   transfer.PolicyPersistent,
	}, strings.NewReader("12345"))
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, transfer.ErrSizeMismatch)
	assert.ErrorIs(t, err, transfer.ErrIOFailure)

	assert.Equal(t, transfer.StateDeleted, f.state(t, "c2l6ZW1pczE"))
	assert.Len(t, f.reaper.locations(), 1)

	_, err = f.ledger.ResolveForDownload(context.Background(), "c2l6ZW1pczE")
	assert.ErrorIs(t, err, transfer.ErrNotFound)
}

func TestLedger_StoreFailureTombstones(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	f.ledger.store = &failingStore{
		Store: f.store,
		PutFunc: func(ctx context.Context, id string, r io.Reader) (string, int64, error) {
			return "", 0, fmt.Errorf("%w: disk full", blob.ErrIOFailure)
		},
	}
	f.ledger.codes = func() (string, error) { return "ZGlza2Z1bGw", nil }

	_, err := f.ledger.Create(context.Background(), transfer.CreateRequest{
		Filename: "big.iso",
		Size:     -1,
		TTL:      time.Hour,
		Policy:   transfer.PolicyOneShot,
	}, strings.NewReader("data"))
	assert.ErrorIs(t, err, transfer.ErrIOFailure)

	assert.Equal(t, transfer.StateDeleted, f.state(t, "ZGlza2Z1bGw"))
	assert.Empty(t, f.reaper.locations())
	assert.Empty(t, f.sink.kinds())
}

func TestLedger_CodeCollisionRetries(t *testing.T) {
	ctx := context.Background()
	codes := []string{"dGFrZW4wMDE", "dGFrZW4wMDE", "ZnJlc2gwMDE"}
	var (
		mu   sync.Mutex
		next int
	)
	gen := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[next]
		next++
		return c, nil
	}

	f := newLedgerFixture(t, LedgerOptions{}, WithCodeGenerator(gen))
	require.NoError(t, f.repo.Reserve(ctx, &transfer.Record{
		Code:     "dGFrZW4wMDE",
		Filename: "old",
		Expiry:   f.clock.Now(),
		Policy:   transfer.PolicyPersistent,
	}))

	rec := f.create(t, transfer.PolicyPersistent, time.Hour, []byte("new"))
	assert.Equal(t, "ZnJlc2gwMDE", rec.Code)
}

func TestLedger_CodeCollisionExhausted(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, LedgerOptions{MaxAttempts: 3}, WithCodeGenerator(func() (string, error) { return "c2FtZTAwMDE", nil }))
	require.NoError(t, f.repo.Reserve(ctx, &transfer.Record{Code: "c2FtZTAwMDE", Filename: "x", Policy: transfer.PolicyPersistent}))

	_, err := f.ledger.Create(ctx, transfer.CreateRequest{
		Filename: "y",
		Size:     -1,
		TTL:      time.Hour,
		Policy:   transfer.PolicyPersistent,
	}, strings.NewReader("y"))
	assert.ErrorIs(t, err, transfer.ErrIOFailure)
	assert.NotErrorIs(t, err, transfer.ErrCodeConflict)
}

func TestLedger_DeleteIdempotence(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	rec := f.create(t, transfer.PolicyPersistent, time.Hour, []byte("admin"))
	ctx := context.Background()

	require.NoError(t, f.ledger.Delete(ctx, rec.Code, "root"))
	assert.ErrorIs(t, f.ledger.Delete(ctx, rec.Code, "root"), transfer.ErrNotFound)
	assert.ErrorIs(t, f.ledger.Delete(ctx, "dW5rbm93bjE", "root"), transfer.ErrNotFound)

	_, err := f.ledger.ResolveForDownload(ctx, rec.Code)
	assert.ErrorIs(t, err, transfer.ErrNotFound)

	assert.Equal(t, []string{rec.Location}, f.reaper.locations())

	f.sink.mu.Lock()
	last := f.sink.events[len(f.sink.events)-1]
	f.sink.mu.Unlock()
	assert.Equal(t, transfer.EventDeleted, last.Kind)
	assert.Equal(t, "root", last.Actor)
	assert.Equal(t, rec.Code, last.Code)
}

func TestLedger_DeleteConsumed(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	rec := f.create(t, transfer.PolicyOneShot, time.Hour, []byte("once"))
	ctx := context.Background()

	_, err := f.ledger.ResolveForDownload(ctx, rec.Code)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Delete(ctx, rec.Code, "root"))
	assert.Equal(t, transfer.StateDeleted, f.state(t, rec.Code))
}

func TestLedger_Listings(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	ctx := context.Background()

	a := f.create(t, transfer.PolicyPersistent, time.Hour, []byte("a"))
	short := f.create(t, transfer.PolicyPersistent, time.Minute, []byte("b"))
	_, err := f.ledger.Create(ctx, transfer.CreateRequest{
		Filename: "bob.txt",
		Size:     -1,
		Owner:    "bob",
		TTL:      time.Hour,
		Policy:   transfer.PolicyOneShot,
	}, strings.NewReader("c"))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)

	mine, err := f.ledger.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.Code, mine[0].Code)

	all, err := f.ledger.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, r := range all {
		assert.NotEqual(t, short.Code, r.Code)
	}
}

// Three expired and two live transfers sweep to three.
func TestLedger_SweepExpired(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{SweepBatch: 2})
	ctx := context.Background()

	var expired []*transfer.Record
	for i := 0; i < 3; i++ {
		expired = append(expired, f.create(t, transfer.PolicyPersistent, time.Minute, []byte("old")))
	}
	for i := 0; i < 2; i++ {
		f.create(t, transfer.PolicyOneShot, time.Hour, []byte("new"))
	}

	f.clock.Advance(5 * time.Minute)

	n, err := f.ledger.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, rec := range expired {
		assert.Equal(t, transfer.StateExpired, f.state(t, rec.Code))
		_, err := f.ledger.ResolveForDownload(ctx, rec.Code)
		assert.ErrorIs(t, err, transfer.ErrExpired)
	}
	assert.Len(t, f.reaper.locations(), 3)

	n, err = f.ledger.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLedger_SweepConcurrentWithResolve(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	ctx := context.Background()

	var recs []*transfer.Record
	for i := 0; i < 20; i++ {
		recs = append(recs, f.create(t, transfer.PolicyPersistent, time.Minute, []byte("x")))
	}
	f.clock.Advance(time.Hour)

	var (
		wg    sync.WaitGroup
		swept int
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		n, err := f.ledger.SweepExpired(ctx)
		assert.NoError(t, err)
		swept = n
	}()
	go func() {
		defer wg.Done()
		for _, rec := range recs {
			_, err := f.ledger.ResolveForDownload(ctx, rec.Code)
			assert.ErrorIs(t, err, transfer.ErrExpired)
		}
	}()
	wg.Wait()

	// each record is retired once, by whichever side won it
	assert.Len(t, f.reaper.locations(), len(recs))
	assert.LessOrEqual(t, swept, len(recs))
}

func TestLedger_SweepPendingAfterGrace(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{PendingGrace: time.Hour})
	ctx := context.Background()

	stale := &transfer.Record{
		Code:      "c3RhbGUwMDE",
		Filename:  "crashed.bin",
		Size:      -1,
		Expiry:    f.clock.Now().Add(time.Minute),
		Policy:    transfer.PolicyPersistent,
		CreatedAt: f.clock.Now(),
	}
	require.NoError(t, f.repo.Reserve(ctx, stale))

	f.clock.Advance(30 * time.Minute)
	fresh := &transfer.Record{
		Code:      "ZnJlc2gwMDE",
		Filename:  "uploading.bin",
		Size:      -1,
		Expiry:    f.clock.Now(),
		Policy:    transfer.PolicyPersistent,
		CreatedAt: f.clock.Now(),
	}
	require.NoError(t, f.repo.Reserve(ctx, fresh))

	f.clock.Advance(31 * time.Minute)

	n, err := f.ledger.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, transfer.StateDeleted, f.state(t, stale.Code))
	assert.Equal(t, transfer.StatePending, f.state(t, fresh.Code))
}

// Reservations still inside their grace period must not fill a batch and
// hide expired transfers behind them.
func TestLedger_SweepBatchSkipsFreshPending(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{SweepBatch: 2, PendingGrace: time.Hour})
	ctx := context.Background()

	active := f.create(t, transfer.PolicyPersistent, time.Minute, []byte("old"))
	f.clock.Advance(2 * time.Hour)

	for _, code := range []string{"cGVuZGluZzE", "cGVuZGluZzI"} {
		require.NoError(t, f.repo.Reserve(ctx, &transfer.Record{
			Code:      code,
			Filename:  "uploading.bin",
			Size:      -1,
			Expiry:    f.clock.Now().Add(-time.Minute),
			Policy:    transfer.PolicyPersistent,
			CreatedAt: f.clock.Now(),
		}))
	}

	n, err := f.ledger.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, transfer.StateExpired, f.state(t, active.Code))
	assert.Equal(t, transfer.StatePending, f.state(t, "cGVuZGluZzE"))
	assert.Equal(t, transfer.StatePending, f.state(t, "cGVuZGluZzI"))
}

func TestLedger_SweepOrphans(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	f.clock.t = time.Now()
	ctx := context.Background()

	live := f.create(t, transfer.PolicyPersistent, 24*time.Hour, []byte("live"))
	dead := f.create(t, transfer.PolicyPersistent, 24*time.Hour, []byte("dead"))
	require.NoError(t, f.ledger.Delete(ctx, dead.Code, "root"))

	stray, _, err := f.store.Put(ctx, "c3RyYXkwMDE", strings.NewReader("stray"))
	require.NoError(t, err)
	young, _, err := f.store.Put(ctx, "eW91bmcwMDE", strings.NewReader("young"))
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	for _, loc := range []string{live.Location, dead.Location, stray} {
		require.NoError(t, os.Chtimes(filepath.Join(f.store.Root(), filepath.FromSlash(loc)), old, old))
	}

	n, err := f.ledger.SweepOrphans(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = os.Stat(filepath.Join(f.store.Root(), filepath.FromSlash(live.Location)))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.store.Root(), filepath.FromSlash(young)))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.store.Root(), filepath.FromSlash(stray)))
	assert.True(t, os.IsNotExist(err))
}

func TestLedger_OpenMissingBlob(t *testing.T) {
	f := newLedgerFixture(t, LedgerOptions{})
	rec := f.create(t, transfer.PolicyPersistent, time.Hour, []byte("vanish"))
	ctx := context.Background()

	require.NoError(t, f.store.Delete(ctx, rec.Location))

	res, err := f.ledger.ResolveForDownload(ctx, rec.Code)
	require.NoError(t, err)

	_, err = f.ledger.Open(ctx, res)
	assert.ErrorIs(t, err, transfer.ErrNotFound)
}
