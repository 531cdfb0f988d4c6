package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Layouts without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"Jan 2, 2006",
	"Jan 02, 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"2 Jan 2006",
	"20060102",
}

// epochMsThreshold separates epoch seconds from epoch milliseconds. 1e11 seconds
// is in the year 5138; 1e11 milliseconds is March 1973.
const epochMsThreshold = 1e11

// ParseDate parses a date cell into Unix milliseconds. Besides the layouts
// above it accepts integer epoch seconds or milliseconds.
func ParseDate(v string) (int64, error) {
	v = strings.Trim(strings.TrimSpace(v), `"`)
	if v == "" {
		return 0, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}

	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if math.Abs(float64(n)) >= epochMsThreshold {
			return n, nil
		}
		return n * 1000, nil
	}

	return 0, fmt.Errorf("unrecognized date %q", v)
}

var suffixMultipliers = map[byte]float64{
	'k': 1e3,
	'm': 1e6,
	'b': 1e9,
}

// ParseNumber parses a numeric cell. Thousands separators are dropped and a
// trailing k, m or b scales the value. Unparsable input yields NaN.
func ParseNumber(v string) float64 {
	s := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(v, ",", "")))
	s = strings.Trim(s, `"`)
	if s == "" {
		return math.NaN()
	}

	multiplier := 1.0
	if m, ok := suffixMultipliers[s[len(s)-1]]; ok {
		multiplier = m
		s = s[:len(s)-1]
	}

	base, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return base * multiplier
}
