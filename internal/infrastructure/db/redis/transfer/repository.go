// Package transfer keeps the ledger in redis. Each record is a hash; a sorted
// set scored by expiry indexes the pending and active ones, and a set per
// owner lists that owner's codes. Every state change runs as a Lua script so
// the check and the write are one atomic step.
package transfer

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"devtransfer/internal/domain/transfer"
)

type Repository struct {
	rdb redis.UniversalClient
}

func NewRepository(rdb redis.UniversalClient) transfer.Repository {
	return &Repository{rdb: rdb}
}

func (r *Repository) Reserve(ctx context.Context, rec *transfer.Record) error {
	expiry := strconv.FormatInt(rec.Expiry.Unix(), 10)

	ok, err := reserveScript.Run(ctx, r.rdb,
		[]string{transferKey(rec.Code), expiryKey, ownerKey(rec.Owner)},
		rec.Code, expiry, rec.Owner,
		"filename", rec.Filename,
		"location", rec.Location,
		"size", strconv.FormatInt(rec.Size, 10),
		"expiry", expiry,
		"policy", string(rec.Policy),
		"owner", rec.Owner,
		"state", string(transfer.StatePending),
		"created_at", strconv.FormatInt(rec.CreatedAt.Unix(), 10),
	).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return transfer.ErrCodeConflict
	}

	return nil
}

func (r *Repository) FetchByCode(ctx context.Context, code string) (*transfer.Record, error) {
	fields, err := r.rdb.HGetAll(ctx, transferKey(code)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	return fromHash(code, fields)
}

func (r *Repository) Activate(ctx context.Context, code, location string, size int64) (bool, error) {
	ok, err := activateScript.Run(ctx, r.rdb, []string{transferKey(code)}, location, size).Int()
	if err != nil {
		return false, err
	}

	return ok == 1, nil
}

func (r *Repository) Transition(ctx context.Context, code string, from []transfer.State, to transfer.State) (bool, error) {
	args := make([]any, 0, len(from)+2)
	args = append(args, code, string(to))
	for _, s := range from {
		args = append(args, string(s))
	}

	ok, err := transitionScript.Run(ctx, r.rdb, []string{transferKey(code), expiryKey}, args...).Int()
	if err != nil {
		return false, err
	}

	return ok == 1, nil
}

// FetchByOwner also prunes codes that no longer belong in the owner set.
func (r *Repository) FetchByOwner(ctx context.Context, owner string, now time.Time) (transfer.Records, error) {
	codes, err := r.rdb.SMembers(ctx, ownerKey(owner)).Result()
	if err != nil {
		return nil, err
	}

	recs, err := r.load(ctx, codes)
	if err != nil {
		return nil, err
	}

	var (
		out   transfer.Records
		stale []any
	)
	for i, rec := range recs {
		switch {
		case rec == nil || rec.Retired():
			stale = append(stale, codes[i])
		case rec.State == transfer.StateActive && !rec.IsExpired(now):
			out = append(out, rec)
		}
	}
	if len(stale) > 0 {
		if err = r.rdb.SRem(ctx, ownerKey(owner), stale...).Err(); err != nil {
			return nil, err
		}
	}

	return newestFirst(out), nil
}

func (r *Repository) FetchActive(ctx context.Context, now time.Time) (transfer.Records, error) {
	codes, err := r.rdb.ZRangeByScore(ctx, expiryKey, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	recs, err := r.load(ctx, codes)
	if err != nil {
		return nil, err
	}

	var out transfer.Records
	for _, rec := range recs {
		if rec != nil && rec.State == transfer.StateActive {
			out = append(out, rec)
		}
	}

	return newestFirst(out), nil
}

// FetchExpired pages through the expiry index because pending records still
// inside their grace period share it with the sweepable ones.
func (r *Repository) FetchExpired(ctx context.Context, now, pendingBefore time.Time, limit int) (transfer.Records, error) {
	by := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}
	if limit > 0 {
		by.Count = int64(limit)
	}

	var out transfer.Records
	for {
		codes, err := r.rdb.ZRangeByScore(ctx, expiryKey, by).Result()
		if err != nil {
			return nil, err
		}

		recs, err := r.load(ctx, codes)
		if err != nil {
			return nil, err
		}

		for _, rec := range recs {
			if rec == nil {
				continue
			}
			if rec.State == transfer.StateActive ||
				(rec.State == transfer.StatePending && !rec.CreatedAt.After(pendingBefore)) {
				out = append(out, rec)
				if limit > 0 && len(out) == limit {
					return out, nil
				}
			}
		}

		if by.Count == 0 || int64(len(codes)) < by.Count {
			return out, nil
		}
		by.Offset += by.Count
	}
}

// load reads the hashes for codes in one round trip. Missing records come
// back as nil at the same index.
func (r *Repository) load(ctx context.Context, codes []string) (transfer.Records, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(codes))
	for i, code := range codes {
		cmds[i] = pipe.HGetAll(ctx, transferKey(code))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	out := make(transfer.Records, len(codes))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec, err := fromHash(codes[i], fields)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}

	return out, nil
}

func newestFirst(recs transfer.Records) transfer.Records {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs
}
