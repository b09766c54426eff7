package ports

import "context"

type Sweeper interface {
	RunOnce(ctx context.Context) (expired, orphans int, err error)
}
