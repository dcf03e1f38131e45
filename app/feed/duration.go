package feed

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidDuration = errors.New("invalid duration")

// FormatDuration renders a count of seconds as H:MM:SS, or M:SS when it is
// shorter than an hour. Negative counts are rejected.
func FormatDuration(raw string) (string, error) {
	total, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidDuration, raw, err)
	}
	if total < 0 {
		return "", fmt.Errorf("%w: %q is negative", ErrInvalidDuration, raw)
	}

	hours := total / 3600
	minutes := (total / 60) % 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds), nil
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds), nil
}
