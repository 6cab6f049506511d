package schedule

import (
	"fmt"
	"time"
)

// Schedule is a stored maintenance schedule: a SingleOccurrence or a
// RecurringRule.
type Schedule interface {
	isSchedule()
}

// Cadence decides which day domain a rule's Days field uses.
type Cadence int

const (
	// Weekly rules select weekdays 0..6, Sunday=0. A wildcard means
	// every day.
	Weekly Cadence = iota
	// Monthly rules select days of month 1..31.
	Monthly
)

func (c Cadence) String() string {
	switch c {
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return fmt.Sprintf("Cadence(%d)", int(c))
	}
}

func (c Cadence) bounds() (int, int) {
	if c == Monthly {
		return MinMonthDay, MaxMonthDay
	}
	return MinWeekday, MaxWeekday
}

// Spillover marks a rule fragment whose day was carried across a UTC
// month boundary.
type Spillover int

const (
	NoSpillover Spillover = iota
	CountsIntoNextMonth
	CountsIntoPreviousMonth
)

func (s Spillover) String() string {
	switch s {
	case NoSpillover:
		return "none"
	case CountsIntoNextMonth:
		return "next-month"
	case CountsIntoPreviousMonth:
		return "previous-month"
	default:
		return fmt.Sprintf("Spillover(%d)", int(s))
	}
}

// monthOffset is the month carry the flag records.
// opposite is the flag a reversal must produce to undo s.
func (s Spillover) opposite() Spillover {
	switch s {
	case CountsIntoNextMonth:
		return CountsIntoPreviousMonth
	case CountsIntoPreviousMonth:
		return CountsIntoNextMonth
	default:
		return NoSpillover
	}
}

func (s Spillover) monthOffset() int {
	switch s {
	case CountsIntoNextMonth:
		return 1
	case CountsIntoPreviousMonth:
		return -1
	default:
		return 0
	}
}

// RecurringRule is a backend recurring schedule with UTC fields.
type RecurringRule struct {
	Hour      int
	Minute    int
	Cadence   Cadence
	Days      Set
	Months    Set
	Duration  time.Duration
	Spillover Spillover
}

func (RecurringRule) isSchedule() {}

// Clock returns the UTC hour and minute.
func (r RecurringRule) Clock() TimeOfDay {
	return TimeOfDay{Hour: r.Hour, Minute: r.Minute}
}

// Validate checks every field of the rule.
func (r RecurringRule) Validate() error {
	return validateFields(r.Clock(), r.Cadence, r.Days, r.Months, r.Duration)
}

// WeekdaySet returns the weekday field in backend form; the wildcard for
// monthly rules.
func (r RecurringRule) WeekdaySet() Set {
	if r.Cadence == Weekly {
		return r.Days
	}
	return Wildcard()
}

// MonthDaySet returns the day-of-month field in backend form; the
// wildcard for weekly rules.
func (r RecurringRule) MonthDaySet() Set {
	if r.Cadence == Monthly {
		return r.Days
	}
	return Wildcard()
}

// LocalRule is the editor's view of a recurring schedule: wall-clock
// values in Zone.
type LocalRule struct {
	Time     TimeOfDay
	Cadence  Cadence
	Days     Set
	Months   Set
	Duration time.Duration
	Zone     string
}

// Validate checks every field of the local rule. Callers run it before
// handing the rule to Forward.
func (l LocalRule) Validate() error {
	if l.Zone == "" {
		return fmt.Errorf("schedule: zone is required")
	}
	return validateFields(l.Time, l.Cadence, l.Days, l.Months, l.Duration)
}

func validateFields(t TimeOfDay, c Cadence, days, months Set, d time.Duration) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if c != Weekly && c != Monthly {
		return fmt.Errorf("schedule: unknown cadence %d", int(c))
	}
	min, max := c.bounds()
	field := "weekday"
	if c == Monthly {
		field = "day of month"
	}
	if err := ValidateSet(days, min, max, field); err != nil {
		return err
	}
	if err := ValidateSet(months, MinMonth, MaxMonth, "month"); err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("schedule: negative duration %s", d)
	}
	return nil
}

// Conversion is the result of converting one recurring selection: a
// primary rule and, when the selection was split across a month boundary,
// a sibling. Both must be written together.
type Conversion struct {
	Primary RecurringRule
	Sibling *RecurringRule
}

// Split reports whether two backend writes are needed.
func (c Conversion) Split() bool { return c.Sibling != nil }

// Rules returns the one or two rules in write order.
func (c Conversion) Rules() []RecurringRule {
	if c.Sibling == nil {
		return []RecurringRule{c.Primary}
	}
	return []RecurringRule{c.Primary, *c.Sibling}
}
