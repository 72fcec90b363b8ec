package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// clockRegex matches a time of day with whole seconds and nothing else.
var clockRegex = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}$`)

// ComposeTimestamp builds a timestamp from a numeric year, month and day
// plus a separate "HH:MM:SS" time of day. Returns nil when any part is
// missing, the clock carries anything beyond whole seconds, or the
// composed value does not parse. A clock value that is
// already a time.Time is returned as is.
func ComposeTimestamp(year, month, day, clock any) any {
	if t, ok := clock.(time.Time); ok {
		if t.IsZero() {
			return nil
		}
		return t
	}

	y, ok1 := ToInteger(year).(int64)
	m, ok2 := ToInteger(month).(int64)
	d, ok3 := ToInteger(day).(int64)
	c, ok4 := clock.(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	c = strings.TrimSpace(c)
	if !clockRegex.MatchString(c) {
		return nil
	}

	composed := fmt.Sprintf("%04d-%02d-%02d %s", y, m, d, c)
	t, err := time.Parse(TimestampLayout, composed)
	if err != nil {
		return nil
	}
	return t
}
