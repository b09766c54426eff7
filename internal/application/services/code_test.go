package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestNewCodeGenerator(t *testing.T) {
	tests := []struct {
		name    string
		bytes   int
		wantLen int
	}{
		{"default", DefaultCodeBytes, 11},
		{"minimum", MinCodeBytes, 7},
		{"below minimum is raised", 2, 7},
		{"long", 16, 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewCodeGenerator(tt.bytes)

			code, err := gen()
			require.NoError(t, err)
			assert.Len(t, code, tt.wantLen)
			assert.Regexp(t, urlSafe, code)
		})
	}
}

func TestNewCodeGenerator_Distinct(t *testing.T) {
	gen := NewCodeGenerator(DefaultCodeBytes)
	seen := make(map[string]struct{}, 10000)

	for i := 0; i < 10000; i++ {
		code, err := gen()
		require.NoError(t, err)
		_, dup := seen[code]
		require.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
}
