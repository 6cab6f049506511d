package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"edgemaint/internal/schedule"
)

// Target is the host, site or region a maintenance window applies to.
// It passes through the schedule engine untouched.
type Target struct {
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
}

// Maintenance is the schedule store's record. Recurring records carry
// UTC cron-like fields; one-time records carry epoch seconds.
type Maintenance struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Target      Target `json:"target"`

	Repeating bool `json:"repeating"`

	// Recurring fields. Lists are comma-separated or "*".
	Hour       string `json:"hour,omitempty"`
	Minute     string `json:"minute,omitempty"`
	DayOfWeek  string `json:"day_of_week,omitempty"`
	DayOfMonth string `json:"day_of_month,omitempty"`
	Month      string `json:"month,omitempty"`
	Duration   int64  `json:"duration,omitempty"` // seconds
	// Spillover is "next_month" or "previous_month" on the carried half
	// of a split pair.
	Spillover string `json:"spillover,omitempty"`

	// One-time fields. EndTime 0 means open-ended.
	StartTime int64 `json:"start_time,omitempty"`
	EndTime   int64 `json:"end_time,omitempty"`
}

// FromRule fills the recurring fields of a record from a UTC rule.
func FromRule(base Maintenance, r schedule.RecurringRule) Maintenance {
	m := base
	m.Repeating = true
	m.Hour = strconv.Itoa(r.Hour)
	m.Minute = strconv.Itoa(r.Minute)
	m.DayOfWeek = r.WeekdaySet().String()
	m.DayOfMonth = r.MonthDaySet().String()
	m.Month = r.Months.String()
	m.Duration = int64(r.Duration / time.Second)
	m.Spillover = spilloverNames[r.Spillover]
	m.StartTime, m.EndTime = 0, 0
	return m
}

// FromSingle fills the one-time fields of a record.
func FromSingle(base Maintenance, s schedule.SingleOccurrence) Maintenance {
	m := base
	m.Repeating = false
	m.Hour, m.Minute, m.DayOfWeek, m.DayOfMonth, m.Month = "", "", "", "", ""
	m.Duration = 0
	m.Spillover = ""
	m.StartTime = s.Start
	m.EndTime = s.End
	if s.OpenEnded {
		m.EndTime = 0
	}
	return m
}

// Schedule parses the record back into a schedule value. Stored data is
// checked here so the engine only ever sees valid rules.
func (m Maintenance) Schedule() (schedule.Schedule, error) {
	if !m.Repeating {
		if m.StartTime <= 0 {
			return nil, fmt.Errorf("model: maintenance %q has no start time", m.ID)
		}
		return schedule.NewSingleOccurrence(m.StartTime, m.EndTime, m.EndTime == 0), nil
	}
	r, err := m.rule()
	if err != nil {
		return nil, fmt.Errorf("model: maintenance %q: %w", m.ID, err)
	}
	return r, nil
}

func (m Maintenance) rule() (schedule.RecurringRule, error) {
	hour, err := parseInt(m.Hour, "hour")
	if err != nil {
		return schedule.RecurringRule{}, err
	}
	minute, err := parseInt(m.Minute, "minute")
	if err != nil {
		return schedule.RecurringRule{}, err
	}
	weekdays, err := schedule.ParseSet(orWildcard(m.DayOfWeek), schedule.MinWeekday, schedule.MaxWeekday)
	if err != nil {
		return schedule.RecurringRule{}, fmt.Errorf("day_of_week: %w", err)
	}
	monthDays, err := schedule.ParseSet(orWildcard(m.DayOfMonth), schedule.MinMonthDay, schedule.MaxMonthDay)
	if err != nil {
		return schedule.RecurringRule{}, fmt.Errorf("day_of_month: %w", err)
	}
	months, err := schedule.ParseSet(orWildcard(m.Month), schedule.MinMonth, schedule.MaxMonth)
	if err != nil {
		return schedule.RecurringRule{}, fmt.Errorf("month: %w", err)
	}
	if !weekdays.IsWildcard() && !monthDays.IsWildcard() {
		return schedule.RecurringRule{}, errors.New("both day_of_week and day_of_month are set")
	}

	r := schedule.RecurringRule{
		Hour:     hour,
		Minute:   minute,
		Cadence:  schedule.Weekly,
		Days:     weekdays,
		Months:   months,
		Duration: time.Duration(m.Duration) * time.Second,
	}
	switch m.Spillover {
	case "":
	case spilloverNames[schedule.CountsIntoNextMonth]:
		r.Spillover = schedule.CountsIntoNextMonth
	case spilloverNames[schedule.CountsIntoPreviousMonth]:
		r.Spillover = schedule.CountsIntoPreviousMonth
	default:
		return schedule.RecurringRule{}, fmt.Errorf("unknown spillover %q", m.Spillover)
	}
	if !monthDays.IsWildcard() {
		r.Cadence = schedule.Monthly
		r.Days = monthDays
	}
	if err := r.Validate(); err != nil {
		return schedule.RecurringRule{}, err
	}
	return r, nil
}

var spilloverNames = map[schedule.Spillover]string{
	schedule.NoSpillover:             "",
	schedule.CountsIntoNextMonth:     "next_month",
	schedule.CountsIntoPreviousMonth: "previous_month",
}

func parseInt(s, field string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, s, err)
	}
	return n, nil
}

func orWildcard(s string) string {
	if strings.TrimSpace(s) == "" {
		return "*"
	}
	return s
}
