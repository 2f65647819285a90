package dataprocessing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DSTRule fixes the UTC offset applied when resolving free-text timestamps
// from the feed. The feed's timezone is resolved by a fixed historical rule
// rather than a live timezone-database lookup: dates on or after the
// transition day take the daylight offset, earlier dates the standard
// offset. The rule only spans the single transition inside the system's
// operating window, which is why it is configuration and not hidden logic.
type DSTRule struct {
	TransitionMonth time.Month
	TransitionDay   int
	StandardOffset  int // seconds east of UTC before the transition
	DaylightOffset  int // seconds east of UTC on/after the transition
}

// DefaultDSTRule returns the rule for the current operating window:
// UTC-08:00 before March 8, UTC-07:00 on or after.
func DefaultDSTRule() DSTRule {
	return DSTRule{
		TransitionMonth: time.March,
		TransitionDay:   8,
		StandardOffset:  -8 * 3600,
		DaylightOffset:  -7 * 3600,
	}
}

// offsetFor picks the offset for a calendar date. Only month and day are
// compared; the rule is applied for whatever year the date carries.
func (r DSTRule) offsetFor(month time.Month, day int) int {
	if month > r.TransitionMonth || (month == r.TransitionMonth && day >= r.TransitionDay) {
		return r.DaylightOffset
	}
	return r.StandardOffset
}

// updatedAtPattern matches "M/D/YYYY H:MM" with an optional AM/PM marker,
// possibly bundled with trailing text in the same cell.
var updatedAtPattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2})(?:\s*([AaPp])\.?[Mm]\.?)?`)

// ResolveTimestamp parses a free-text "last updated" value into a
// timezone-aware instant under the given DST rule. It returns ok=false on
// empty input or no pattern match; the caller must then substitute the
// ingestion wall clock, since a committed snapshot never has an absent
// timestamp.
func ResolveTimestamp(raw string, rule DSTRule) (time.Time, bool) {
	m := updatedAtPattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	// Meridiem math: PM adds 12 unless already 12, AM resets 12 to 0.
	switch strings.ToUpper(m[6]) {
	case "P":
		if hour != 12 {
			hour += 12
		}
	case "A":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 {
		return time.Time{}, false
	}

	offset := rule.offsetFor(time.Month(month), day)
	loc := time.FixedZone("", offset)
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), true
}
