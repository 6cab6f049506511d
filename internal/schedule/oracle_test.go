package schedule

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// locationOracle answers from Go's embedded zone database.
type locationOracle struct{}

func (locationOracle) load(zone string) (*time.Location, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownZone, zone)
	}
	return loc, nil
}

func (o locationOracle) OffsetMinutes(zone string, at time.Time) (int, error) {
	loc, err := o.load(zone)
	if err != nil {
		return 0, err
	}
	_, off := at.In(loc).Zone()
	return off / 60, nil
}

func (o locationOracle) Abbreviation(zone string, at time.Time) (string, error) {
	loc, err := o.load(zone)
	if err != nil {
		return "", err
	}
	name, _ := at.In(loc).Zone()
	return name, nil
}

// fixedOracle maps zone names to constant offsets in minutes.
type fixedOracle map[string]int

func (f fixedOracle) OffsetMinutes(zone string, _ time.Time) (int, error) {
	if zone == UTC {
		return 0, nil
	}
	off, ok := f[zone]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownZone, zone)
	}
	return off, nil
}

func (f fixedOracle) Abbreviation(zone string, _ time.Time) (string, error) {
	if _, err := f.OffsetMinutes(zone, time.Time{}); err != nil {
		return "", err
	}
	return zone, nil
}

// West is five hours behind UTC, East ten hours ahead.
var fixed = fixedOracle{"West": -5 * 60, "East": 10 * 60}

var refDate = Date{Year: 2024, Month: time.January, Day: 15}
