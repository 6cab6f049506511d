// Package tzdb answers timezone questions for the schedule engine from
// Go's embedded IANA database.
package tzdb

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/maypok86/otter/v2"

	appLog "edgemaint/internal/log"
	"edgemaint/internal/schedule"
)

const defaultCacheSize = 512

// Database implements schedule.Oracle. Loaded locations are cached;
// offsets never are, since they depend on the instant asked about.
type Database struct {
	locations *otter.Cache[string, *time.Location]
}

// New returns a Database caching up to size locations (a default if
// size <= 0).
func New(size int) *Database {
	if size <= 0 {
		size = defaultCacheSize
	}
	return &Database{
		locations: otter.Must(&otter.Options[string, *time.Location]{
			MaximumSize: size,
		}),
	}
}

// Location loads zone. "Local" and the empty name are refused so results
// never depend on the host's configuration.
func (d *Database) Location(zone string) (*time.Location, error) {
	if loc, ok := d.locations.GetIfPresent(zone); ok {
		return loc, nil
	}
	if zone == "" || zone == "Local" {
		return nil, fmt.Errorf("%w: %q", schedule.ErrUnknownZone, zone)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		appLog.Debug("tzdb: load failed", "zone", zone, "err", err)
		return nil, fmt.Errorf("%w: %q", schedule.ErrUnknownZone, zone)
	}
	d.locations.Set(zone, loc)
	return loc, nil
}

// OffsetMinutes implements schedule.Oracle.
func (d *Database) OffsetMinutes(zone string, at time.Time) (int, error) {
	loc, err := d.Location(zone)
	if err != nil {
		return 0, err
	}
	_, off := at.In(loc).Zone()
	return off / 60, nil
}

// Abbreviation implements schedule.Oracle.
func (d *Database) Abbreviation(zone string, at time.Time) (string, error) {
	loc, err := d.Location(zone)
	if err != nil {
		return "", err
	}
	name, _ := at.In(loc).Zone()
	return name, nil
}

// Selection is a timezone picked in the editor, resolved for one
// reference date.
type Selection struct {
	Code          string `json:"tz_code"`
	Label         string `json:"display_label"`
	OffsetMinutes int    `json:"utc_offset_minutes"`
	Abbreviation  string `json:"abbreviation"`
}

// Select resolves zone at noon UTC on ref. The result is only valid for
// that date; call again for another one.
func (d *Database) Select(zone string, ref schedule.Date) (Selection, error) {
	at := time.Date(ref.Year, ref.Month, ref.Day, 12, 0, 0, 0, time.UTC)
	off, err := d.OffsetMinutes(zone, at)
	if err != nil {
		return Selection{}, err
	}
	abbr, err := d.Abbreviation(zone, at)
	if err != nil {
		return Selection{}, err
	}
	return Selection{
		Code:          zone,
		Label:         fmt.Sprintf("(UTC%s) %s", FormatOffset(off), zone),
		OffsetMinutes: off,
		Abbreviation:  abbr,
	}, nil
}

// FormatOffset renders minutes east of UTC as "+05:30".
func FormatOffset(minutes int) string {
	sign := '+'
	if minutes < 0 {
		sign = '-'
		minutes = -minutes
	}
	return fmt.Sprintf("%c%02d:%02d", sign, minutes/60, minutes%60)
}
