package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateFormats is the fixed ladder tried after any mapping-provided hint.
// Order matters: unambiguous layouts come first.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
	"2/1/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// parseDate resolves a date string: format hint first, then the fixed
// ladder, then a last-resort split of ambiguous numeric dates. Epoch
// timestamps (seconds) are accepted as well, which is how the hierarchical
// exports carry creation times.
func parseDate(s, hint string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if hint != "" {
		if t, err := time.Parse(hint, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		if t, err := epochToTime(ts); err == nil {
			return t, nil
		}
	}
	return parseAmbiguous(s)
}

// epochToTime accepts unix seconds or milliseconds inside a sane range.
func epochToTime(ts int64) (time.Time, error) {
	switch {
	case ts > 1_000_000_000_000 && ts < 10_000_000_000_000:
		return time.UnixMilli(ts).UTC(), nil
	case ts > 1_000_000_000 && ts < 10_000_000_000:
		return time.Unix(ts, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("timestamp %d out of range", ts)
}

// parseAmbiguous handles numeric d/m/y-or-m/d/y strings, deciding the field
// order by magnitude and preferring month-first when both readings work.
func parseAmbiguous(s string) (time.Time, error) {
	sep := ""
	for _, c := range []string{"/", "-", "."} {
		if strings.Count(s, c) == 2 {
			sep = c
			break
		}
	}
	if sep == "" {
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	}
	parts := strings.Split(s, sep)
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("unparseable date %q", s)
		}
		nums[i] = n
	}
	var y, m, d int
	switch {
	case nums[0] > 31: // y m d
		y, m, d = nums[0], nums[1], nums[2]
	case nums[2] > 31: // first two are day/month in some order
		y = nums[2]
		if nums[0] > 12 {
			d, m = nums[0], nums[1]
		} else {
			m, d = nums[0], nums[1]
		}
	default:
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}
