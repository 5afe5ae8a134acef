package events

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > 200 {
		return errors.New("name must be 200 characters or less")
	}
	return nil
}

func ValidateThresholds(safe, crowded int) error {
	if safe < 0 {
		return errors.New("safe_threshold must be non-negative")
	}
	if crowded < safe {
		return fmt.Errorf("crowded_threshold (%d) must be >= safe_threshold (%d)", crowded, safe)
	}
	return nil
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return date, nil
}
