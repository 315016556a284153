package models

import (
	"fmt"
	"strings"
	"time"
)

var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseDeadline accepts RFC 3339 timestamps as well as the date and
// datetime-local forms sent by HTML forms. Values without a zone are UTC.
// An empty string yields the zero time.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid deadline %q", s)
}
