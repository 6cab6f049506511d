package schedule

// UTC is the zone identifier of the backend's cron fields.
const UTC = "UTC"

// ShiftClock reads t as a wall-clock time on ref in source and returns the
// same instant's wall-clock time in target, together with the signed
// number of calendar days the date moved.
//
// Offsets are looked up for that exact instant, so the answer follows DST
// for whatever ref is supplied.
func ShiftClock(t TimeOfDay, source, target string, ref Date, o Oracle) (TimeOfDay, int, error) {
	must(t.Validate())
	if source == target {
		return t, 0, nil
	}

	wall := ref.days()*secondsPerDay + t.seconds()
	inst, err := resolveWall(o, source, wall, false)
	if err != nil {
		return TimeOfDay{}, 0, err
	}
	off, err := offsetSeconds(o, target, inst)
	if err != nil {
		return TimeOfDay{}, 0, err
	}

	targetWall := inst + off
	days := floorDiv(targetWall, secondsPerDay) - floorDiv(wall, secondsPerDay)
	rem := targetWall - floorDiv(targetWall, secondsPerDay)*secondsPerDay
	return TimeOfDay{Hour: int(rem / 3600), Minute: int(rem % 3600 / 60)}, int(days), nil
}

// DateOffsetAcrossTimezones returns the calendar date of t-on-ref in target
// minus its date in source: -1, 0 or +1 for any pair of real zones where one
// side is UTC.
func DateOffsetAcrossTimezones(t TimeOfDay, source, target string, ref Date, o Oracle) (int, error) {
	_, days, err := ShiftClock(t, source, target, ref, o)
	return days, err
}
