package schedule

// fragment is one piece of a converted day-of-month selection.
type fragment struct {
	days      Set
	months    Set
	spillover Spillover
}

// splitMonthDays shifts a day-of-month selection by a day offset of -1, 0
// or +1.
//
// A boundary day that crosses into a neighbouring month (31 moving
// forward, 1 moving back) cannot stay in the same month set: it becomes
// day 1 of each following month, or day 31 of each preceding month, and is
// returned as a flagged fragment after the ordinary days. The split only
// happens when the months are explicit; with a wildcard month every month
// still matches, so the boundary day wraps in place.
func splitMonthDays(days, months Set, offset int) []fragment {
	if offset == 0 || days.IsWildcard() {
		return []fragment{{days: days, months: months}}
	}

	boundary, carried, flag := MaxMonthDay, MinMonthDay, CountsIntoNextMonth
	if offset < 0 {
		boundary, carried, flag = MinMonthDay, MaxMonthDay, CountsIntoPreviousMonth
	}
	if months.IsWildcard() || !days.Contains(boundary) {
		return []fragment{{days: days.shift(MinMonthDay, MaxMonthDay, offset), months: months}}
	}

	spill := fragment{
		days:      SetOf(carried),
		months:    months.shift(MinMonth, MaxMonth, flag.monthOffset()),
		spillover: flag,
	}
	rest := days.without(boundary)
	if rest.Len() == 0 {
		return []fragment{spill}
	}
	return []fragment{
		{days: rest.shift(MinMonthDay, MaxMonthDay, offset), months: months},
		spill,
	}
}
