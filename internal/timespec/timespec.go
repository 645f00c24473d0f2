package timespec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relative = regexp.MustCompile(`^(\d+)([hmd])$`)

// Parse resolves a time specification to a point in time relative to now.
// Supported forms: "today" (midnight of the current day), "Nh" (hours ago),
// "Nm" (minutes ago), and "Nd" (days ago).
func Parse(spec string, now time.Time) (time.Time, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))

	if spec == "today" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}

	m := relative.FindStringSubmatch(spec)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid time format %q: use formats like '1h', '30m', '2d', or 'today'", spec)
	}

	amount, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time amount %q: %w", m[1], err)
	}

	switch m[2] {
	case "h":
		return now.Add(-time.Duration(amount) * time.Hour), nil
	case "m":
		return now.Add(-time.Duration(amount) * time.Minute), nil
	default:
		return now.Add(-time.Duration(amount) * 24 * time.Hour), nil
	}
}
