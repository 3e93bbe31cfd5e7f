package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownGranularity is returned when parsing an unsupported granularity.
var ErrUnknownGranularity = errors.New("unknown granularity")

// Granularity selects the bucket width and lookback depth used by a
// leaderboard.
type Granularity int

// Supported granularities.
const (
	Daily  Granularity = iota // hourly buckets, 24 deep
	Weekly                    // daily buckets, 7 deep
)

const (
	dailyLookback  = 24
	weeklyLookback = 7
)

// Granularities lists every supported granularity in a stable order.
func Granularities() []Granularity { return []Granularity{Daily, Weekly} }

// ParseGranularity parses "daily" or "weekly".
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

func (g Granularity) String() string {
	switch g {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Valid reports whether g is one of the supported granularities.
func (g Granularity) Valid() bool { return g == Daily || g == Weekly }

// Lookback is the number of buckets scanned when scoring.
func (g Granularity) Lookback() int {
	if g == Weekly {
		return weeklyLookback
	}
	return dailyLookback
}

// Window is the span of tap history that makes an entity a recompute
// candidate.
func (g Granularity) Window() time.Duration {
	if g == Weekly {
		return weeklyLookback * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Truncate returns the start of the bucket containing t. Buckets are cut in
// UTC so the same instant maps to the same bucket whatever offset it carries.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	if g == Weekly {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(y, m, d, t.Hour(), 0, 0, 0, time.UTC)
}

// Step moves a bucket boundary n units into the past. Days are calendar days.
func (g Granularity) Step(boundary time.Time, n int) time.Time {
	if g == Weekly {
		return boundary.AddDate(0, 0, -n)
	}
	return boundary.Add(-time.Duration(n) * time.Hour)
}

// BucketKey is the unix timestamp of the bucket containing t.
func (g Granularity) BucketKey(t time.Time) int64 {
	return g.Truncate(t).Unix()
}

// LookbackKeys returns the bucket keys scanned when scoring at now, most
// recent first, starting one unit before the bucket that contains now.
func (g Granularity) LookbackKeys(now time.Time) []int64 {
	n := g.Lookback()
	boundary := g.Truncate(now)
	keys := make([]int64, n)
	for i := 1; i <= n; i++ {
		keys[i-1] = g.Step(boundary, i).Unix()
	}
	return keys
}
