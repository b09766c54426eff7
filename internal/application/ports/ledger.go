package ports

import (
	"context"
	"io"
	"time"

	"devtransfer/internal/domain/transfer"
)

type LedgerService interface {
	Create(ctx context.Context, req transfer.CreateRequest, body io.Reader) (*transfer.Record, error)
	// ResolveForDownload decides whether code may be downloaded now. A
	// one-shot resolution is already consumed when it is returned; the caller
	// must Release it once the bytes are streamed.
	ResolveForDownload(ctx context.Context, code string) (*transfer.Resolution, error)
	Open(ctx context.Context, res *transfer.Resolution) (io.ReadCloser, error)
	Release(ctx context.Context, res *transfer.Resolution)
	ListByOwner(ctx context.Context, owner string) (transfer.Records, error)
	ListActive(ctx context.Context) (transfer.Records, error)
	Delete(ctx context.Context, code, requester string) error
	SweepExpired(ctx context.Context) (int, error)
	SweepOrphans(ctx context.Context, grace time.Duration) (int, error)
}
