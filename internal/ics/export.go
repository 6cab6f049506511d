package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "edgemaint/internal/log"
	"edgemaint/internal/model"
	"edgemaint/internal/schedule"
)

// rruleWeekdays is indexed by schedule weekday (Sunday=0).
var rruleWeekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Option returns the recurrence of a stored UTC rule. Dtstart is left
// for the caller.
//
// A rule carried into the previous month stands for the last day of each
// of its months and is written as BYMONTHDAY=-1.
func Option(r schedule.RecurringRule) rrule.ROption {
	opt := rrule.ROption{
		Freq:     rrule.DAILY,
		Interval: 1,
		Byhour:   []int{r.Hour},
		Byminute: []int{r.Minute},
		Bysecond: []int{0},
	}
	if !r.Months.IsWildcard() {
		opt.Bymonth = r.Months.Values()
	}
	if r.Days.IsWildcard() {
		return opt
	}
	switch r.Cadence {
	case schedule.Weekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range r.Days.Values() {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case schedule.Monthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = r.Days.Values()
		if r.Spillover == schedule.CountsIntoPreviousMonth {
			opt.Bymonthday = []int{-1}
		}
	}
	return opt
}

// recurrence builds the rule anchored at from.
func recurrence(r schedule.RecurringRule, from time.Time) (*rrule.RRule, error) {
	opt := Option(r)
	opt.Dtstart = from.UTC().Truncate(time.Minute)
	return rrule.NewRRule(opt)
}

// ExportOptions controls calendar export.
type ExportOptions struct {
	ProductID string
	// From anchors recurring events: DTSTART is the first window at or
	// after it. It is also the DTSTAMP of every event.
	From time.Time
}

// Export renders stored records as a VCALENDAR. One-time records become
// plain events; recurring records become events with an RRULE. Records
// that cannot be parsed or never fire are skipped and logged.
func Export(records []model.Maintenance, opts ExportOptions) (string, error) {
	if opts.From.IsZero() {
		opts.From = time.Now()
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	if opts.ProductID != "" {
		cal.SetProductId(opts.ProductID)
	}

	for i, rec := range records {
		sch, err := rec.Schedule()
		if err != nil {
			appLog.Error("ics export: skipping record", err, "id", rec.ID)
			continue
		}
		uid := rec.ID
		if uid == "" {
			uid = fmt.Sprintf("record-%d", i)
		}

		var start, end time.Time
		var rule string
		switch s := sch.(type) {
		case schedule.SingleOccurrence:
			start = time.Unix(s.Start, 0)
			if !s.OpenEnded {
				end = time.Unix(s.End, 0)
			}
		case schedule.RecurringRule:
			rr, err := recurrence(s, opts.From)
			if err != nil {
				return "", fmt.Errorf("ics: record %s: %w", rec.ID, err)
			}
			start = rr.After(opts.From, true)
			if start.IsZero() {
				appLog.Warn("ics export: rule never fires", "id", rec.ID)
				continue
			}
			end = start.Add(s.Duration)
			opt := Option(s)
			rule = opt.RRuleString()
		}

		ev := cal.AddEvent(uid + "@edgemaint")
		ev.SetDtStampTime(opts.From)
		ev.SetSummary(rec.Name)
		if rec.Description != "" {
			ev.SetDescription(rec.Description)
		}
		if rec.Target.ID != "" {
			ev.SetLocation(rec.Target.Kind + "/" + rec.Target.ID)
		}
		ev.SetStartAt(start)
		if !end.IsZero() {
			ev.SetEndAt(end)
		}
		if rule != "" {
			ev.SetProperty(ical.ComponentPropertyRrule, rule)
		}
	}
	return cal.Serialize(), nil
}
