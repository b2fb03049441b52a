package model

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the end-of-day sentinel: a close time of 24:00.
const MinutesPerDay = 24 * 60

// ParseClock parses a civil "HH:MM" clock time into minutes from midnight.
// "24:00" is accepted as the end-of-day sentinel used by always-open windows.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}

	if hour < 0 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %s", s)
	}

	total := hour*60 + minute
	if total > MinutesPerDay {
		return 0, fmt.Errorf("time out of range: %s", s)
	}
	return total, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
