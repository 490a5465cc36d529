package timesync

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseElapsed parses a ps etime value such as "05:12", "01:23:45", or
// "3-04:05:06".
func ParseElapsed(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty elapsed time")
	}

	var days int
	if i := strings.IndexByte(s, '-'); i >= 0 {
		d, err := strconv.Atoi(s[:i])
		if err != nil || d < 0 {
			return 0, fmt.Errorf("invalid day count in %q", s)
		}
		days = d
		s = s[i+1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid elapsed time %q", s)
	}

	values := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid elapsed component %q", p)
		}
		values[i] = v
	}

	var hours, minutes, seconds int
	if len(values) == 3 {
		hours, minutes, seconds = values[0], values[1], values[2]
	} else {
		minutes, seconds = values[0], values[1]
	}
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("elapsed time out of range %q", s)
	}

	return time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second, nil
}

// FormatElapsed renders d in ps etime form, truncated to whole seconds.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	default:
		return fmt.Sprintf("%02d:%02d", minutes, seconds)
	}
}

// StartedAt returns the process start time implied by an etime value
// observed at now.
func StartedAt(now time.Time, etime string) (time.Time, error) {
	d, err := ParseElapsed(etime)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-d), nil
}
