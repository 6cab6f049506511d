package schedule

import (
	"fmt"
	"sort"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Oracle is the timezone database. Offsets are always queried for a
// concrete instant; implementations must not assume a fixed offset per
// zone.
type Oracle interface {
	// OffsetMinutes returns the UTC offset of zone at instant at, in
	// minutes east of UTC.
	OffsetMinutes(zone string, at time.Time) (int, error)
	// Abbreviation returns the zone abbreviation in effect at at
	// (e.g. "EST", "IST").
	Abbreviation(zone string, at time.Time) (string, error)
}

// Date is a calendar date with no zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("schedule: bad date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// days returns the number of days since 1970-01-01.
func (d Date) days() int64 {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

func dateFromDays(n int64) Date {
	return DateOf(time.Unix(n*secondsPerDay, 0).UTC())
}

// TimeOfDay is a wall-clock hour and minute.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Validate checks the hour and minute ranges.
func (t TimeOfDay) Validate() error {
	if err := checkRange("hour", t.Hour, 0, 23); err != nil {
		return err
	}
	return checkRange("minute", t.Minute, 0, 59)
}

func (t TimeOfDay) seconds() int64 {
	return int64(t.Hour*3600 + t.Minute*60)
}

// LocalDateTime is a wall-clock reading in some zone.
type LocalDateTime struct {
	Date
	Hour   int
	Minute int
	Second int
	// Repeated marks the second occurrence of a reading that happens twice
	// when clocks fall back.
	Repeated bool
}

// Clock returns the hour and minute.
func (l LocalDateTime) Clock() TimeOfDay {
	return TimeOfDay{Hour: l.Hour, Minute: l.Minute}
}

// Validate checks every field range, including the day against the month
// length.
func (l LocalDateTime) Validate() error {
	if err := checkRange("month", int(l.Month), MinMonth, MaxMonth); err != nil {
		return err
	}
	last := time.Date(l.Year, l.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if err := checkRange("day", l.Day, 1, last); err != nil {
		return err
	}
	if err := l.Clock().Validate(); err != nil {
		return err
	}
	return checkRange("second", l.Second, 0, 59)
}

// wall returns the reading as seconds since the epoch, as if it were UTC.
func (l LocalDateTime) wall() int64 {
	return l.Date.days()*secondsPerDay + int64(l.Hour*3600+l.Minute*60+l.Second)
}

func localFromWall(wall int64) LocalDateTime {
	day := floorDiv(wall, secondsPerDay)
	rem := wall - day*secondsPerDay
	return LocalDateTime{
		Date:   dateFromDays(day),
		Hour:   int(rem / 3600),
		Minute: int(rem % 3600 / 60),
		Second: int(rem % 60),
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func offsetSeconds(o Oracle, zone string, unix int64) (int64, error) {
	m, err := o.OffsetMinutes(zone, time.Unix(unix, 0).UTC())
	if err != nil {
		return 0, fmt.Errorf("schedule: zone %q: %w", zone, err)
	}
	return int64(m) * 60, nil
}

// resolveWall maps a wall-clock reading in zone to an instant. Readings
// that occur twice resolve to the earlier instant unless repeated is set;
// readings inside a gap are pushed forward by the pre-gap offset.
func resolveWall(o Oracle, zone string, wall int64, repeated bool) (int64, error) {
	before, err := offsetSeconds(o, zone, wall-secondsPerDay)
	if err != nil {
		return 0, err
	}
	after, err := offsetSeconds(o, zone, wall+secondsPerDay)
	if err != nil {
		return 0, err
	}
	candidates := []int64{before}
	if after != before {
		candidates = append(candidates, after)
	}

	var valid []int64
	for _, off := range candidates {
		inst := wall - off
		got, err := offsetSeconds(o, zone, inst)
		if err != nil {
			return 0, err
		}
		if got == off {
			valid = append(valid, inst)
		}
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i] < valid[j] })

	switch {
	case len(valid) == 0:
		return wall - before, nil
	case repeated:
		return valid[len(valid)-1], nil
	default:
		return valid[0], nil
	}
}
