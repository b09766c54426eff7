package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	DefaultCodeBytes = 8
	// MinCodeBytes keeps the code space at 2^40 or more.
	MinCodeBytes = 5
)

// CodeGenerator returns a fresh transfer code on every call.
type CodeGenerator func() (string, error)

// NewCodeGenerator draws n random bytes per code and encodes them as
// unpadded base64url, so a code is safe in a URL path and a file name.
func NewCodeGenerator(n int) CodeGenerator {
	if n < MinCodeBytes {
		n = MinCodeBytes
	}

	return func() (string, error) {
		b := make([]byte, n)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("read random code: %w", err)
		}
		return base64.RawURLEncoding.EncodeToString(b), nil
	}
}
