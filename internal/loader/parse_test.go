package loader

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"12":        12,
		" 1,234.5 ": 1234.5,
		"1.5k":      1500,
		"2M":        2e6,
		"0.25b":     2.5e8,
		"-3":        -3,
	}
	for in, want := range cases {
		assert.InDelta(t, want, ParseNumber(in), 1e-9, in)
	}

	for _, in := range []string{"", "abc", "k", "-"} {
		assert.True(t, math.IsNaN(ParseNumber(in)), in)
	}
}

func TestParseDate(t *testing.T) {
	cases := map[string]int64{
		"2024-01-02":           jan2,
		"2024-01-02T00:00:00Z": jan2,
		"2024-01-02 00:00:00":  jan2,
		"01/02/2024":           jan2,
		"Jan 2, 2024":          jan2,
		"02-Jan-2024":          jan2,
		"20240102":             jan2,
		"1704153600":           jan2,
		"1704153600000":        jan2,
	}
	for in, want := range cases {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "yesterday", "2024-13-40"} {
		_, err := ParseDate(in)
		assert.Error(t, err, in)
	}
}
