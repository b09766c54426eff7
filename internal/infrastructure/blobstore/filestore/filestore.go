// Package filestore stores blobs as plain files under a root directory.
//
// Writes go to a temp file in the target directory, are fsynced and then
// renamed into place, so a reader never sees a truncated blob.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"devtransfer/internal/domain/blob"
)

const tmpMarker = ".tmp-"

type Store struct {
	root string
}

var _ blob.Store = (*Store)(nil)

func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("empty storage root")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}

	return &Store{root: root}, nil
}

func (s *Store) Root() string { return s.root }

// Put writes r to <root>/<id[:2]>/<id>.
func (s *Store) Put(ctx context.Context, id string, r io.Reader) (string, int64, error) {
	if err := validID(id); err != nil {
		return "", 0, err
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	location := path.Join(shard(id), id)
	fullPath := filepath.Join(s.root, filepath.FromSlash(location))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", 0, fmt.Errorf("%w: create dir: %v", blob.ErrIOFailure, err)
	}

	tmpPath := fullPath + tmpMarker + uuid.NewString()[:8]
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("%w: create temp file: %v", blob.ErrIOFailure, err)
	}

	written, err := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", written, fmt.Errorf("%w: write: %w", blob.ErrIOFailure, err)
	}
	if err = f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", written, fmt.Errorf("%w: fsync: %v", blob.ErrIOFailure, err)
	}
	if err = f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", written, fmt.Errorf("%w: close: %v", blob.ErrIOFailure, err)
	}
	if err = os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", written, fmt.Errorf("%w: publish: %v", blob.ErrIOFailure, err)
	}

	return location, written, nil
}

func (s *Store) Open(_ context.Context, location string) (io.ReadCloser, error) {
	fullPath, err := s.fullPath(location)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, location)
		}
		return nil, fmt.Errorf("%w: open %s: %v", blob.ErrIOFailure, location, err)
	}

	return f, nil
}

func (s *Store) Delete(_ context.Context, location string) error {
	fullPath, err := s.fullPath(location)
	if err != nil {
		return err
	}

	if err = os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", blob.ErrNotFound, location)
		}
		return fmt.Errorf("%w: remove %s: %v", blob.ErrIOFailure, location, err)
	}

	return nil
}

// Walk visits every published blob. Temp files of in-flight writes are skipped.
func (s *Store) Walk(ctx context.Context, fn func(blob.Info) error) error {
	return filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.Contains(d.Name(), tmpMarker) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}

		return fn(blob.Info{
			Location: filepath.ToSlash(rel),
			ID:       d.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	})
}

func (s *Store) fullPath(location string) (string, error) {
	clean := path.Clean("/" + location)
	if location == "" || clean == "/" || clean[1:] != location {
		return "", fmt.Errorf("%w: invalid location %q", blob.ErrNotFound, location)
	}

	return filepath.Join(s.root, filepath.FromSlash(location)), nil
}

func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.Contains(id, tmpMarker) {
		return fmt.Errorf("%w: invalid blob id %q", blob.ErrIOFailure, id)
	}
	return nil
}

func shard(id string) string {
	if len(id) < 2 {
		return "_" + id
	}
	return id[:2]
}

// ctxReader stops a long copy once the request context is gone.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
