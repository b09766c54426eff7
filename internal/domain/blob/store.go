package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound  = errors.New("blob not found")
	ErrIOFailure = errors.New("blob io failure")
)

type (
	Info struct {
		Location string
		ID       string
		Size     int64
		ModTime  time.Time
	}

	// Store keeps blob bytes apart from any metadata. Locations it returns are
	// opaque to callers.
	Store interface {
		// Put publishes r under a path derived from id. A reader never observes
		// a partially written blob.
		Put(ctx context.Context, id string, r io.Reader) (location string, written int64, err error)
		Open(ctx context.Context, location string) (io.ReadCloser, error)
		// Delete returns ErrNotFound when the blob is already gone.
		Delete(ctx context.Context, location string) error
		Walk(ctx context.Context, fn func(Info) error) error
	}
)
