package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Placeholder is shown when a value cannot be rendered.
const Placeholder = "-"

// FormatClock renders a 12-hour clock time, e.g. "04:30 AM".
func FormatClock(t TimeOfDay) string {
	if t.Validate() != nil {
		return Placeholder
	}
	suffix := "AM"
	h := t.Hour
	if h >= 12 {
		suffix = "PM"
	}
	if h%12 == 0 {
		h = 12
	} else {
		h %= 12
	}
	return fmt.Sprintf("%02d:%02d %s", h, t.Minute, suffix)
}

// FormatDuration renders H:MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return Placeholder
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

func sortedValues(s Set) []int {
	v := s.Values()
	sort.Ints(v)
	return v
}

// FormatWeekdays renders short weekday names in week order.
func FormatWeekdays(s Set) string {
	if s.IsWildcard() {
		return "Every day"
	}
	names := make([]string, 0, s.Len())
	for _, d := range sortedValues(s) {
		if d < MinWeekday || d > MaxWeekday {
			return Placeholder
		}
		names = append(names, time.Weekday(d).String()[:3])
	}
	return strings.Join(names, ", ")
}

// FormatMonths renders short month names in calendar order.
func FormatMonths(s Set) string {
	if s.IsWildcard() {
		return "Every month"
	}
	names := make([]string, 0, s.Len())
	for _, m := range sortedValues(s) {
		if m < MinMonth || m > MaxMonth {
			return Placeholder
		}
		names = append(names, time.Month(m).String()[:3])
	}
	return strings.Join(names, ", ")
}

// FormatMonthDays renders the days of month in order.
func FormatMonthDays(s Set) string {
	if s.IsWildcard() {
		return "Every day"
	}
	parts := make([]string, 0, s.Len())
	for _, d := range sortedValues(s) {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ", ")
}

// Description is the display form of a stored schedule in some zone.
type Description struct {
	Zone     string `json:"zone"`
	Time     string `json:"time,omitempty"`
	Days     string `json:"days,omitempty"`
	Months   string `json:"months,omitempty"`
	Duration string `json:"duration,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
}

// DescribeRecurring renders stored UTC rules in zone. Failures show up as
// placeholders rather than errors.
func DescribeRecurring(stored []RecurringRule, zone string, ref Date, o Oracle) (d Description) {
	d = Description{Zone: zoneLabel(zone, ref, o), Time: Placeholder, Days: Placeholder, Months: Placeholder, Duration: Placeholder}
	if len(stored) == 0 {
		return d
	}
	for _, r := range stored {
		if r.Validate() != nil {
			return d
		}
	}
	local, err := Localize(stored, zone, ref, o)
	if err != nil {
		return d
	}
	d.Time = FormatClock(local.Time)
	if local.Cadence == Monthly {
		d.Days = FormatMonthDays(local.Days)
	} else {
		d.Days = FormatWeekdays(local.Days)
	}
	d.Months = FormatMonths(local.Months)
	d.Duration = FormatDuration(local.Duration)
	return d
}

const dateTimeLayout = "Mon, Jan 2 2006 03:04 PM"

// DescribeSingle renders a one-time window in zone.
func DescribeSingle(s SingleOccurrence, zone string, o Oracle) Description {
	start := time.Unix(s.Start, 0).UTC()
	d := Description{Zone: zoneLabel(zone, DateOf(start), o), Start: Placeholder, End: Placeholder}
	w, err := s.Localize(zone, o)
	if err != nil {
		return d
	}
	d.Start = formatLocal(w.Start)
	if w.OpenEnded {
		d.End = "Open-ended"
	} else {
		d.End = formatLocal(w.End)
		if s.End >= s.Start {
			d.Duration = FormatDuration(time.Duration(s.End-s.Start) * time.Second)
		}
	}
	return d
}

func formatLocal(l LocalDateTime) string {
	t := time.Date(l.Year, l.Month, l.Day, l.Hour, l.Minute, l.Second, 0, time.UTC)
	return t.Format(dateTimeLayout)
}

func zoneLabel(zone string, ref Date, o Oracle) string {
	at := time.Date(ref.Year, ref.Month, ref.Day, 12, 0, 0, 0, time.UTC)
	abbr, err := o.Abbreviation(zone, at)
	if err != nil || abbr == "" {
		return zone
	}
	return zone + " (" + abbr + ")"
}
