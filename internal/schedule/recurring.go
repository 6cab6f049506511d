package schedule

import "fmt"

// convert moves a recurring selection from source to target. The day
// offset of the clock conversion drives every other shift.
func convert(t TimeOfDay, c Cadence, days, months Set, source, target string, ref Date, o Oracle) (TimeOfDay, []fragment, error) {
	shifted, offset, err := ShiftClock(t, source, target, ref, o)
	if err != nil {
		return TimeOfDay{}, nil, err
	}
	if offset < -1 || offset > 1 {
		return TimeOfDay{}, nil, fmt.Errorf("schedule: %s to %s moves the date by %d days", source, target, offset)
	}

	if c == Weekly {
		return shifted, []fragment{{days: days.shift(MinWeekday, MaxWeekday, offset), months: months}}, nil
	}
	return shifted, splitMonthDays(days, months, offset), nil
}

// Forward converts a local recurring selection to the UTC rule or rules
// the backend stores. ref is "today" in the caller's terms; it pins the
// offsets used for the conversion.
//
// The rule must already be valid; Forward panics otherwise.
func Forward(l LocalRule, ref Date, o Oracle) (Conversion, error) {
	must(l.Validate())

	t, parts, err := convert(l.Time, l.Cadence, l.Days, l.Months, l.Zone, UTC, ref, o)
	if err != nil {
		return Conversion{}, err
	}

	rules := make([]RecurringRule, len(parts))
	for i, p := range parts {
		rules[i] = RecurringRule{
			Hour:      t.Hour,
			Minute:    t.Minute,
			Cadence:   l.Cadence,
			Days:      p.days,
			Months:    p.months,
			Duration:  l.Duration,
			Spillover: p.spillover,
		}
	}

	out := Conversion{Primary: rules[0]}
	if len(rules) == 2 {
		out.Sibling = &rules[1]
	}
	return out, nil
}

// Reverse converts one stored UTC rule to local values in zone.
func Reverse(r RecurringRule, zone string, ref Date, o Oracle) (LocalRule, error) {
	return Localize([]RecurringRule{r}, zone, ref, o)
}

// Localize recomputes the editor's local values from the stored rule or
// split pair and the selected zone. Call it whenever either changes.
//
// Every fragment of the reversed rules must land in the same local months.
// A stored spillover half qualifies only when the reversal carries its day
// back across the boundary it crossed. Anything else has no single local
// rule that saves back to the stored rules, and Localize returns an error
// matching ErrNotLocalizable.
func Localize(stored []RecurringRule, zone string, ref Date, o Oracle) (LocalRule, error) {
	if len(stored) == 0 {
		return LocalRule{}, fmt.Errorf("schedule: no rules to localize")
	}
	if zone == "" {
		return LocalRule{}, fmt.Errorf("schedule: zone is required")
	}
	first := stored[0]
	for _, r := range stored {
		must(r.Validate())
		if r.Cadence != first.Cadence || r.Clock() != first.Clock() {
			return LocalRule{}, fmt.Errorf("schedule: stored rules disagree on cadence or time")
		}
	}

	out := LocalRule{Cadence: first.Cadence, Duration: first.Duration, Zone: zone}
	merged := false
	for _, r := range stored {
		t, parts, err := convert(r.Clock(), r.Cadence, r.Days, r.Months, UTC, zone, ref, o)
		if err != nil {
			return LocalRule{}, err
		}
		out.Time = t
		for _, p := range parts {
			if p.spillover != r.Spillover.opposite() {
				return LocalRule{}, notLocalizable(r, zone)
			}
			if !merged {
				out.Days, out.Months, merged = p.days, p.months, true
				continue
			}
			if !p.months.Equal(out.Months) {
				return LocalRule{}, notLocalizable(r, zone)
			}
			out.Days = out.Days.union(p.days)
		}
	}
	return out, nil
}

func notLocalizable(r RecurringRule, zone string) error {
	return fmt.Errorf("%w: days %s of months %s at %s UTC (%s) in %s",
		ErrNotLocalizable, r.Days, r.Months, r.Clock(), r.Spillover, zone)
}
