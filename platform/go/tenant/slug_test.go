package tenant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		expectSlug  string
		expectError bool
	}{
		{name: "already normalized", input: "acme-co", expectSlug: "acme-co"},
		{name: "trims whitespace and lowercases", input: "  Beta-Inc ", expectSlug: "beta-inc"},
		{name: "max length", input: strings.Repeat("a", MaxSlugLength), expectSlug: strings.Repeat("a", MaxSlugLength)},
		{name: "empty string", input: "   ", expectError: true},
		{name: "invalid characters", input: "acme_co", expectError: true},
		{name: "leading hyphen", input: "-bad-slug", expectError: true},
		{name: "double hyphen", input: "bad--slug", expectError: true},
		{name: "too long", input: strings.Repeat("a", MaxSlugLength+1), expectError: true},
		{name: "reserved", input: "Central", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slug, err := NormalizeSlug(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expectSlug, slug)
		})
	}
}
