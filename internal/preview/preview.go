// Package preview lists the next maintenance windows of stored UTC rules.
package preview

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	"edgemaint/internal/schedule"
)

// maxPerRule caps how far a single rule is walked.
const maxPerRule = 366

// Window is one upcoming maintenance window.
type Window struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Relative string    `json:"relative"`
	// Rule is the index of the rule that produced the window.
	Rule int `json:"rule"`
}

// Expression renders a rule as a standard five-field cron expression in
// UTC: "minute hour day-of-month month day-of-week".
func Expression(r schedule.RecurringRule) string {
	return fmt.Sprintf("%d %d %s %s %s", r.Minute, r.Hour, r.MonthDaySet(), r.Months, r.WeekdaySet())
}

func parse(r schedule.RecurringRule) (cron.Schedule, error) {
	s, err := cron.ParseStandard("CRON_TZ=UTC " + Expression(r))
	if err != nil {
		return nil, fmt.Errorf("preview: rule %q: %w", Expression(r), err)
	}
	return s, nil
}

// evaluable returns the rule cron should walk and how far its firings are
// moved. A rule carried into the previous month means the last day of each
// of its months, which cron cannot express; it is walked as day 1 of the
// following months and moved back a day.
func evaluable(r schedule.RecurringRule) (schedule.RecurringRule, time.Duration) {
	if r.Cadence != schedule.Monthly || r.Spillover != schedule.CountsIntoPreviousMonth || r.Months.IsWildcard() {
		return r, 0
	}
	months := r.Months.Values()
	for i, m := range months {
		months[i] = m%schedule.MaxMonth + 1
	}
	r.Days = schedule.SetOf(schedule.MinMonthDay)
	r.Months = schedule.SetOf(months...)
	return r, -24 * time.Hour
}

// Upcoming returns the next n windows of rules strictly after after, in
// start order, with times in loc. A split pair yields one merged stream.
func Upcoming(rules []schedule.RecurringRule, after time.Time, n int, loc *time.Location) ([]Window, error) {
	if n <= 0 || len(rules) == 0 {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	var all []Window
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		er, shift := evaluable(r)
		sched, err := parse(er)
		if err != nil {
			return nil, err
		}
		t := after.UTC().Add(-shift)
		for k := 0; k < n && k < maxPerRule; k++ {
			t = sched.Next(t)
			if t.IsZero() {
				break
			}
			start := t.Add(shift)
			all = append(all, Window{Start: start, End: start.Add(r.Duration), Rule: i})
		}
	}

	sort.SliceStable(all, func(a, b int) bool { return all[a].Start.Before(all[b].Start) })
	if len(all) > n {
		all = all[:n]
	}
	for i := range all {
		all[i].Relative = humanize.RelTime(all[i].Start, after, "ago", "from now")
		all[i].Start = all[i].Start.In(loc)
		all[i].End = all[i].End.In(loc)
	}
	return all, nil
}

// Single returns the window of a one-time occurrence if it has not ended
// by after. Open-ended windows have a zero End.
func Single(s schedule.SingleOccurrence, after time.Time, loc *time.Location) (Window, bool) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Unix(s.Start, 0)
	w := Window{Start: start.In(loc), Relative: humanize.RelTime(start, after, "ago", "from now")}
	if s.OpenEnded {
		return w, true
	}
	end := time.Unix(s.End, 0)
	if !end.After(after) {
		return Window{}, false
	}
	w.End = end.In(loc)
	return w, true
}
