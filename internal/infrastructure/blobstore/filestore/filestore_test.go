package filestore

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devtransfer/internal/domain/blob"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)
	return s
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "blobs")

	s, err := New(root)
	require.NoError(t, err)
	assert.Equal(t, root, s.Root())

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNew_EmptyRoot(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestPutOpen_RoundTrip(t *testing.T) {
	large := make([]byte, 5<<20)
	_, err := rand.Read(large)
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		payload []byte
	}{
		{name: "empty", id: "AAAAAAAAAAA", payload: []byte{}},
		{name: "small", id: "bbbbbbbbbbb", payload: []byte("report contents")},
		{name: "multi megabyte", id: "ccccccccccc", payload: large},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			loc, n, err := s.Put(ctx, tt.id, bytes.NewReader(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.payload)), n)
			assert.Equal(t, tt.id[:2]+"/"+tt.id, loc)

			rc, err := s.Open(ctx, loc)
			require.NoError(t, err)
			defer rc.Close()

			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.payload, got), "payload mismatch")
		})
	}
}

func TestPut_NoTempFileLeft(t *testing.T) {
	s := newStore(t)

	loc, _, err := s.Put(context.Background(), "code1234", strings.NewReader("data"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.Root(), filepath.Dir(loc)))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "code1234", entries[0].Name())
}

type failingReader struct{ n int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errors.New("disk on fire")
	}
	f.n--
	p[0] = 'x'
	return 1, nil
}

func TestPut_WriteErrorLeavesNothingVisible(t *testing.T) {
	s := newStore(t)

	_, _, err := s.Put(context.Background(), "brokenid", &failingReader{n: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, blob.ErrIOFailure)

	_, err = s.Open(context.Background(), "br/brokenid")
	assert.ErrorIs(t, err, blob.ErrNotFound)

	entries, err := os.ReadDir(filepath.Join(s.Root(), "br"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPut_CanceledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Put(ctx, "cancelled", strings.NewReader("data"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestPut_InvalidID(t *testing.T) {
	s := newStore(t)

	for _, id := range []string{"", ".", "..", "a/b", `a\b`, "x.tmp-1"} {
		_, _, err := s.Put(context.Background(), id, strings.NewReader("data"))
		assert.ErrorIs(t, err, blob.ErrIOFailure, "id %q", id)
	}
}

func TestOpen_Missing(t *testing.T) {
	s := newStore(t)

	_, err := s.Open(context.Background(), "zz/zzzz")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestOpen_RejectsEscapingLocation(t *testing.T) {
	s := newStore(t)

	for _, loc := range []string{"", "/etc/passwd", "../secret", "ab/../../x"} {
		_, err := s.Open(context.Background(), loc)
		assert.ErrorIs(t, err, blob.ErrNotFound, "location %q", loc)
	}
}

func TestDelete_Twice(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	loc, _, err := s.Put(ctx, "deleteme", strings.NewReader("data"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, loc))
	assert.ErrorIs(t, s.Delete(ctx, loc), blob.ErrNotFound)
}

func TestDelete_WhileOpenKeepsReaderWorking(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	loc, _, err := s.Put(ctx, "openfile", strings.NewReader("still readable"))
	require.NoError(t, err)

	rc, err := s.Open(ctx, loc)
	require.NoError(t, err)
	defer rc.Close()

	require.NoError(t, s.Delete(ctx, loc))

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "still readable", string(got))
}

func TestWalk_SkipsTempFiles(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, _, err := s.Put(ctx, "first111", strings.NewReader("1"))
	require.NoError(t, err)
	_, _, err = s.Put(ctx, "second22", strings.NewReader("22"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "fi", "first111"+tmpMarker+"abc"), []byte("x"), 0o640))

	seen := map[string]int64{}
	err = s.Walk(ctx, func(info blob.Info) error {
		seen[info.ID] = info.Size
		assert.Equal(t, info.ID[:2]+"/"+info.ID, info.Location)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"first111": 1, "second22": 2}, seen)
}
