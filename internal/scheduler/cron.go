// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronSchedule is a parsed, validated standard 5-field POSIX cron
// expression (spec.md §4.7).
type CronSchedule struct {
	minute  fieldSet
	hour    fieldSet
	dom     fieldSet
	month   fieldSet
	weekday fieldSet

	domRestricted bool
	dowRestricted bool

	Expression string
	Timezone   string
}

// fieldSet is a bitset over a cron field's valid integer range.
type fieldSet map[int]bool

var monthAliases = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var weekdayAliases = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// ParseCron parses a standard 5-field POSIX cron expression in the given
// IANA timezone. Supported per-field syntax: `*`, `a`, `a-b`, `a-b/c`,
// `*/c`, and comma-separated lists of any of those. Month and weekday
// fields additionally accept three-letter aliases; weekday `7` is
// normalized to `0` (Sunday).
func ParseCron(expression, timezone string) (*CronSchedule, error) {
	fields := strings.Fields(expression)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	minute, err := parseField(fields[0], 0, 59, nil)
	if err != nil {
		return nil, fmt.Errorf("minute field: %w", err)
	}
	hour, err := parseField(fields[1], 0, 23, nil)
	if err != nil {
		return nil, fmt.Errorf("hour field: %w", err)
	}
	dom, err := parseField(fields[2], 1, 31, nil)
	if err != nil {
		return nil, fmt.Errorf("day-of-month field: %w", err)
	}
	month, err := parseField(fields[3], 1, 12, monthAliases)
	if err != nil {
		return nil, fmt.Errorf("month field: %w", err)
	}
	weekday, err := parseField(fields[4], 0, 7, weekdayAliases)
	if err != nil {
		return nil, fmt.Errorf("day-of-week field: %w", err)
	}
	if weekday[7] {
		weekday[0] = true
		delete(weekday, 7)
	}

	return &CronSchedule{
		minute:        minute,
		hour:          hour,
		dom:           dom,
		month:         month,
		weekday:       weekday,
		domRestricted: fields[2] != "*",
		dowRestricted: fields[4] != "*",
		Expression:    expression,
		Timezone:      timezone,
	}, nil
}

// parseField parses one comma-separated cron field into a fieldSet.
func parseField(field string, min, max int, aliases map[string]int) (fieldSet, error) {
	set := fieldSet{}
	for _, part := range strings.Split(field, ",") {
		if err := parseFieldPart(part, min, max, aliases, set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func parseFieldPart(part string, min, max int, aliases map[string]int, set fieldSet) error {
	step := 1
	rangePart := part
	if idx := strings.Index(part, "/"); idx >= 0 {
		rangePart = part[:idx]
		s, err := strconv.Atoi(part[idx+1:])
		if err != nil || s <= 0 {
			return fmt.Errorf("invalid step in %q", part)
		}
		step = s
	}

	var lo, hi int
	switch {
	case rangePart == "*":
		lo, hi = min, max
	case strings.Contains(rangePart, "-"):
		bounds := strings.SplitN(rangePart, "-", 2)
		l, err := resolveValue(bounds[0], aliases)
		if err != nil {
			return err
		}
		h, err := resolveValue(bounds[1], aliases)
		if err != nil {
			return err
		}
		lo, hi = l, h
	default:
		v, err := resolveValue(rangePart, aliases)
		if err != nil {
			return err
		}
		lo, hi = v, v
		if idx := strings.Index(part, "/"); idx >= 0 {
			hi = max
		}
	}

	if lo < min || hi > max || lo > hi {
		return fmt.Errorf("value out of range in %q (expected %d-%d)", part, min, max)
	}
	for v := lo; v <= hi; v += step {
		set[v] = true
	}
	return nil
}

func resolveValue(token string, aliases map[string]int) (int, error) {
	if aliases != nil {
		if v, ok := aliases[strings.ToLower(token)]; ok {
			return v, nil
		}
	}
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", token)
	}
	return v, nil
}

// Matches reports whether t (already in the schedule's timezone) matches
// this cron schedule, applying the POSIX OR rule when both
// day-of-month and day-of-week are restricted.
func (c *CronSchedule) Matches(t time.Time) bool {
	if !c.minute[t.Minute()] || !c.hour[t.Hour()] || !c.month[int(t.Month())] {
		return false
	}
	domMatch := c.dom[t.Day()]
	dowMatch := c.weekday[int(t.Weekday())]
	if c.domRestricted && c.dowRestricted {
		return domMatch || dowMatch
	}
	return domMatch && dowMatch
}

// maxSearchHorizon bounds compute_next_run_at's minute-by-minute search
// to roughly five years, per spec.md §4.7.
const maxSearchHorizon = 5 * 366 * 24 * time.Hour

// ComputeNextRunAt returns the first instant strictly after after that
// matches the schedule, searching minute-by-minute up to a ~5 year
// horizon. It returns false only when no match exists in that horizon.
func (c *CronSchedule) ComputeNextRunAt(after time.Time) (time.Time, bool) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc = time.UTC
	}
	cursor := after.In(loc).Truncate(time.Minute).Add(time.Minute)
	deadline := after.Add(maxSearchHorizon)
	for cursor.Before(deadline) {
		if c.Matches(cursor) {
			return cursor, true
		}
		cursor = cursor.Add(time.Minute)
	}
	return time.Time{}, false
}
