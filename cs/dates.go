package cs

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var durationPattern = regexp.MustCompile(`^([0-9]+)([ywdm])$`)

// parseUntilDate parses a date string in YYYY-MM-DD, YYYY-MM, or YYYY format.
// Partial dates resolve to the last day of the period.
func parseUntilDate(dateStr string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", dateStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01", dateStr); err == nil {
		return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse("2006", dateStr); err == nil {
		return time.Date(t.Year(), 12, 31, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("invalid date format. Use YYYY-MM-DD, YYYY-MM, or YYYY")
}

// parseStartDate parses a date string in YYYY-MM-DD, YYYY-MM, or YYYY format.
// Partial dates resolve to the first day of the period.
func parseStartDate(dateStr string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format. Use YYYY-MM-DD, YYYY-MM, or YYYY")
}

// subtractDuration goes back a simplified prometheus-style duration from t
// Supports: y (years), w (weeks), d (days), m (months)
// Examples: "30d", "2w", "1y", "6m"
// No combinations allowed (e.g., "1y2w" is invalid)
func subtractDuration(t time.Time, durationStr string) (time.Time, error) {
	matches := durationPattern.FindStringSubmatch(durationStr)
	if len(matches) != 3 {
		return time.Time{}, fmt.Errorf("invalid duration format. Use format like '30d', '2w', '1y', or '6m' (no combinations allowed)")
	}

	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration value: %s", matches[1])
	}

	switch matches[2] {
	case "y":
		return t.AddDate(-value, 0, 0), nil
	case "w":
		return t.AddDate(0, 0, -7*value), nil
	case "d":
		return t.AddDate(0, 0, -value), nil
	default:
		return t.AddDate(0, -value, 0), nil
	}
}

// ParseDateRange parses the --since and --until flags.
// since may be a date or a duration relative to until; until defaults to today.
func ParseDateRange(sinceStr, untilStr string, now time.Time) (since, until time.Time, err error) {
	until = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if untilStr != "" {
		until, err = parseUntilDate(untilStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("failed to parse until date: %w", err)
		}
	}

	if sinceStr == "" {
		sinceStr = "4w"
	}
	if durationPattern.MatchString(sinceStr) {
		since, err = subtractDuration(until, sinceStr)
	} else {
		since, err = parseStartDate(sinceStr)
	}
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse since date: %w", err)
	}

	if since.After(until) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since date (%s) must not be after --until date (%s)", since.Format("2006-01-02"), until.Format("2006-01-02"))
	}
	return since, until, nil
}
