package transfer

import (
	"fmt"
	"strconv"
	"time"

	"devtransfer/internal/domain/transfer"
)

// fromHash decodes a transfer hash. Hashes written before policy and owner
// were tracked lack those fields and read as persistent with no owner.
func fromHash(code string, h map[string]string) (*transfer.Record, error) {
	size, err := parseInt(h, "size", -1)
	if err != nil {
		return nil, err
	}
	expiry, err := parseInt(h, "expiry", 0)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseInt(h, "created_at", 0)
	if err != nil {
		return nil, err
	}

	return &transfer.Record{
		Code:     code,
		Filename: h["filename"],
		Location: h["location"],
		Size:     size,
		Expiry:   time.Unix(expiry, 0).UTC(),
		Policy:   transfer.ParsePolicy(h["policy"]),
		Owner:    h["owner"],
		State:    transfer.State(h["state"]),

		CreatedAt: time.Unix(createdAt, 0).UTC(),
	}, nil
}

func parseInt(h map[string]string, field string, def int64) (int64, error) {
	v, ok := h[field]
	if !ok || v == "" {
		return def, nil
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("transfer hash field %s: %w", field, err)
	}

	return n, nil
}
