package transfer

import "errors"

var (
	// ErrNotFound covers codes that never existed and one-shot codes that were
	// already consumed; the two are deliberately indistinguishable.
	ErrNotFound       = errors.New("transfer not found")
	ErrExpired        = errors.New("transfer expired")
	ErrIOFailure      = errors.New("transfer storage failure")
	ErrSizeMismatch   = errors.New("transfer size does not match declared length")
	ErrInvalidTTL     = errors.New("invalid transfer ttl")
	ErrInvalidRequest = errors.New("invalid transfer request")

	// ErrCodeConflict is returned by repositories on duplicate codes and is
	// retried by the ledger, never surfaced to callers.
	ErrCodeConflict = errors.New("transfer code already exists")
)
