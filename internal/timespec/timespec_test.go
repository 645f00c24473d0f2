package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)

func TestParse_Today(t *testing.T) {
	got, err := Parse("today", testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestParse_Relative(t *testing.T) {
	tests := []struct {
		spec string
		want time.Time
	}{
		{"1h", testNow.Add(-time.Hour)},
		{"2h", testNow.Add(-2 * time.Hour)},
		{"30m", testNow.Add(-30 * time.Minute)},
		{"45m", testNow.Add(-45 * time.Minute)},
		{"1d", testNow.Add(-24 * time.Hour)},
		{"7d", testNow.Add(-7 * 24 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := Parse(tt.spec, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_TrimsAndLowercases(t *testing.T) {
	got, err := Parse("  TODAY ", testNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), got)

	got, err = Parse(" 2H ", testNow)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(-2*time.Hour), got)
}

func TestParse_Invalid(t *testing.T) {
	for _, spec := range []string{"", "yesterday", "2w", "h", "12", "1.5h", "-1h"} {
		t.Run(spec, func(t *testing.T) {
			_, err := Parse(spec, testNow)
			assert.Error(t, err)
		})
	}
}
