// Package maintenance validates editor forms, converts them with the
// schedule engine and writes the resulting records to the schedule store.
package maintenance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"edgemaint/internal/model"
	"edgemaint/internal/schedule"
)

// ErrInvalidForm matches every *FormError.
var ErrInvalidForm = errors.New("maintenance: invalid form")

// FormError names the form field that failed validation.
type FormError struct {
	Field string
	Err   error
}

func (e *FormError) Error() string {
	return fmt.Sprintf("maintenance: %s: %v", e.Field, e.Err)
}

func (e *FormError) Unwrap() error { return e.Err }

func (e *FormError) Is(target error) bool { return target == ErrInvalidForm }

func invalid(field string, err error) error {
	return &FormError{Field: field, Err: err}
}

// Form is the editor's view of a maintenance window. All times are wall
// clock values in Timezone.
type Form struct {
	// IDs lists the stored records this form edits: none for a new
	// window, two for a split pair.
	IDs         []string     `json:"ids,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Target      model.Target `json:"target"`
	Timezone    string       `json:"timezone"`
	Repeating   bool         `json:"repeating"`

	// Recurring.
	Time     string `json:"time,omitempty"`     // "15:04"
	Cadence  string `json:"cadence,omitempty"`  // weekly or monthly
	Days     string `json:"days,omitempty"`     // "*" or "1,15"
	Months   string `json:"months,omitempty"`   // "*" or "3,6"
	Duration int64  `json:"duration,omitempty"` // seconds

	// One-time. Start and End are "2006-01-02T15:04[:05]". The Repeated
	// flags pick the second reading of a time repeated at fall-back.
	Start         string `json:"start,omitempty"`
	End           string `json:"end,omitempty"`
	OpenEnded     bool   `json:"open_ended,omitempty"`
	StartRepeated bool   `json:"start_repeated,omitempty"`
	EndRepeated   bool   `json:"end_repeated,omitempty"`
}

const localLayout = "2006-01-02T15:04:05"

var localLayouts = []string{localLayout, "2006-01-02T15:04"}

func (f Form) base() model.Maintenance {
	return model.Maintenance{Name: f.Name, Description: f.Description, Target: f.Target}
}

// Rule validates the recurring fields and returns the local rule.
func (f Form) Rule() (schedule.LocalRule, error) {
	if !f.Repeating {
		return schedule.LocalRule{}, invalid("repeating", errors.New("form is not recurring"))
	}
	if err := f.checkCommon(); err != nil {
		return schedule.LocalRule{}, err
	}
	clock, err := time.Parse("15:04", strings.TrimSpace(f.Time))
	if err != nil {
		return schedule.LocalRule{}, invalid("time", err)
	}
	cadence, err := ParseCadence(f.Cadence)
	if err != nil {
		return schedule.LocalRule{}, invalid("cadence", err)
	}
	min, max := schedule.MinWeekday, schedule.MaxWeekday
	if cadence == schedule.Monthly {
		min, max = schedule.MinMonthDay, schedule.MaxMonthDay
	}
	days, err := schedule.ParseSet(orWildcard(f.Days), min, max)
	if err != nil {
		return schedule.LocalRule{}, invalid("days", err)
	}
	months, err := schedule.ParseSet(orWildcard(f.Months), schedule.MinMonth, schedule.MaxMonth)
	if err != nil {
		return schedule.LocalRule{}, invalid("months", err)
	}
	if f.Duration < 0 {
		return schedule.LocalRule{}, invalid("duration", errors.New("negative duration"))
	}

	l := schedule.LocalRule{
		Time:     schedule.TimeOfDay{Hour: clock.Hour(), Minute: clock.Minute()},
		Cadence:  cadence,
		Days:     days,
		Months:   months,
		Duration: time.Duration(f.Duration) * time.Second,
		Zone:     f.Timezone,
	}
	if err := l.Validate(); err != nil {
		return schedule.LocalRule{}, invalid("rule", err)
	}
	return l, nil
}

// Window validates the one-time fields and returns the local window.
func (f Form) Window() (schedule.LocalWindow, error) {
	if f.Repeating {
		return schedule.LocalWindow{}, invalid("repeating", errors.New("form is recurring"))
	}
	if err := f.checkCommon(); err != nil {
		return schedule.LocalWindow{}, err
	}
	start, err := parseLocal(f.Start, f.StartRepeated)
	if err != nil {
		return schedule.LocalWindow{}, invalid("start", err)
	}
	// An end time next to the open-ended flag is dropped, not rejected.
	if f.OpenEnded || strings.TrimSpace(f.End) == "" {
		return schedule.LocalWindow{Start: start, OpenEnded: true}, nil
	}
	end, err := parseLocal(f.End, f.EndRepeated)
	if err != nil {
		return schedule.LocalWindow{}, invalid("end", err)
	}
	return schedule.LocalWindow{Start: start, End: end}, nil
}

func (f Form) checkCommon() error {
	if strings.TrimSpace(f.Name) == "" {
		return invalid("name", errors.New("name is required"))
	}
	if f.Timezone == "" {
		return invalid("timezone", errors.New("timezone is required"))
	}
	if len(f.IDs) > 2 {
		return invalid("ids", fmt.Errorf("a form edits at most 2 records, got %d", len(f.IDs)))
	}
	return nil
}

func parseLocal(s string, repeated bool) (schedule.LocalDateTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return schedule.LocalDateTime{}, errors.New("time is required")
	}
	var (
		t   time.Time
		err error
	)
	for _, layout := range localLayouts {
		if t, err = time.Parse(layout, s); err == nil {
			break
		}
	}
	if err != nil {
		return schedule.LocalDateTime{}, err
	}
	return schedule.LocalDateTime{
		Date:     schedule.DateOf(t),
		Hour:     t.Hour(),
		Minute:   t.Minute(),
		Second:   t.Second(),
		Repeated: repeated,
	}, nil
}

func formatLocal(l schedule.LocalDateTime) string {
	return time.Date(l.Year, l.Month, l.Day, l.Hour, l.Minute, l.Second, 0, time.UTC).Format(localLayout)
}

// ParseCadence accepts "weekly" and "monthly".
func ParseCadence(s string) (schedule.Cadence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly", "":
		return schedule.Weekly, nil
	case "monthly":
		return schedule.Monthly, nil
	default:
		return 0, fmt.Errorf("unknown cadence %q", s)
	}
}

func orWildcard(s string) string {
	if strings.TrimSpace(s) == "" {
		return "*"
	}
	return s
}

// ruleForm fills the recurring fields from a localized rule.
func ruleForm(f Form, l schedule.LocalRule) Form {
	f.Repeating = true
	f.Timezone = l.Zone
	f.Time = l.Time.String()
	f.Cadence = l.Cadence.String()
	f.Days = l.Days.String()
	f.Months = l.Months.String()
	f.Duration = int64(l.Duration / time.Second)
	return f
}

// windowForm fills the one-time fields from a localized window.
func windowForm(f Form, zone string, w schedule.LocalWindow) Form {
	f.Repeating = false
	f.Timezone = zone
	f.Start = formatLocal(w.Start)
	f.StartRepeated = w.Start.Repeated
	f.OpenEnded = w.OpenEnded
	if !w.OpenEnded {
		f.End = formatLocal(w.End)
		f.EndRepeated = w.End.Repeated
	}
	return f
}
