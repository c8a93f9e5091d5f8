package aggregate

import (
	"fmt"
	"time"

	"skytally/pkg/bluesky"
)

// Granularity is the width of a timeline bucket
type Granularity string

const (
	ByMinute Granularity = "minute"
	ByHour   Granularity = "hour"
	ByDay    Granularity = "day"
)

// layout is the bucket key format for g
func (g Granularity) layout() string {
	switch g {
	case ByDay:
		return time.DateOnly
	case ByHour:
		return "2006-01-02 15:00"
	default:
		return "2006-01-02 15:04"
	}
}

func (g Granularity) step() time.Duration {
	switch g {
	case ByDay:
		return 24 * time.Hour
	case ByHour:
		return time.Hour
	default:
		return time.Minute
	}
}

// GranularityFor picks the bucket width for a span: days above five days,
// hours above five hours, minutes otherwise
func GranularityFor(span time.Duration) Granularity {
	switch {
	case span > 5*24*time.Hour:
		return ByDay
	case span > 5*time.Hour:
		return ByHour
	default:
		return ByMinute
	}
}

// earliestLike bounds timestamps from below. No like predates the network.
var earliestLike = time.Date(2022, time.November, 1, 0, 0, 0, 0, time.UTC)

// clockSkew is how far past the current time a timestamp may lie
const clockSkew = 24 * time.Hour

// now is replaced in tests
var now = time.Now

// Timeline is a contiguous series of buckets in ascending time order
type Timeline struct {
	Granularity Granularity `json:"granularity"`
	Buckets     Table       `json:"buckets"`
}

// LikesOverTime counts likes per time bucket, in UTC. Every bucket between
// the first and the last like is present, including empty ones. Timestamps
// before the network existed or more than a day in the future are skipped so
// a single bogus value cannot stretch the series.
func LikesOverTime(likes []bluesky.Like) (Timeline, Diagnostics) {
	var diag Diagnostics
	latest := now().UTC().Add(clockSkew)

	times := make([]time.Time, 0, len(likes))
	for i := range likes {
		ts, err := time.Parse(time.RFC3339Nano, likes[i].CreatedAt)
		if err != nil {
			diag.skip(i, fmt.Sprintf("invalid createdAt %q", likes[i].CreatedAt))
			continue
		}
		ts = ts.UTC()
		if ts.Before(earliestLike) || ts.After(latest) {
			diag.skip(i, fmt.Sprintf("createdAt %q outside plausible range", likes[i].CreatedAt))
			continue
		}
		times = append(times, ts)
		diag.Processed++
	}

	if len(times) == 0 {
		return Timeline{Granularity: ByMinute, Buckets: Table{}}, diag
	}

	first, last := times[0], times[0]
	for _, ts := range times[1:] {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}

	g := GranularityFor(last.Sub(first))
	step := g.step()

	counts := make(map[int64]int)
	for _, ts := range times {
		counts[ts.Truncate(step).Unix()]++
	}

	buckets := Table{}
	for b := first.Truncate(step); !b.After(last); b = b.Add(step) {
		buckets = append(buckets, Entry{Key: b.Format(g.layout()), Count: counts[b.Unix()]})
	}

	return Timeline{Granularity: g, Buckets: buckets}, diag
}
