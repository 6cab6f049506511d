package tzdb

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"edgemaint/internal/schedule"
)

func TestSelectFollowsDST(t *testing.T) {
	db := New(8)
	cases := []struct {
		zone string
		ref  schedule.Date
		want Selection
	}{
		{"America/New_York", schedule.Date{Year: 2024, Month: time.January, Day: 15},
			Selection{Code: "America/New_York", Label: "(UTC-05:00) America/New_York", OffsetMinutes: -300, Abbreviation: "EST"}},
		{"America/New_York", schedule.Date{Year: 2024, Month: time.July, Day: 15},
			Selection{Code: "America/New_York", Label: "(UTC-04:00) America/New_York", OffsetMinutes: -240, Abbreviation: "EDT"}},
		{"Asia/Calcutta", schedule.Date{Year: 2024, Month: time.July, Day: 15},
			Selection{Code: "Asia/Calcutta", Label: "(UTC+05:30) Asia/Calcutta", OffsetMinutes: 330, Abbreviation: "IST"}},
		{"UTC", schedule.Date{Year: 2024, Month: time.July, Day: 15},
			Selection{Code: "UTC", Label: "(UTC+00:00) UTC", OffsetMinutes: 0, Abbreviation: "UTC"}},
	}
	for _, c := range cases {
		got, err := db.Select(c.zone, c.ref)
		if err != nil {
			t.Fatalf("Select(%s, %s) error: %v", c.zone, c.ref, err)
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("Select(%s, %s) mismatch (-want +got):\n%s", c.zone, c.ref, diff)
		}
	}
}

func TestUnknownZones(t *testing.T) {
	db := New(0)
	for _, zone := range []string{"", "Local", "Nowhere/Land"} {
		if _, err := db.OffsetMinutes(zone, time.Now()); !errors.Is(err, schedule.ErrUnknownZone) {
			t.Errorf("OffsetMinutes(%q) error = %v, want ErrUnknownZone", zone, err)
		}
	}
}

func TestDatabaseDrivesConversion(t *testing.T) {
	db := New(8)
	got, days, err := schedule.ShiftClock(schedule.TimeOfDay{Hour: 23}, schedule.UTC, "Asia/Calcutta",
		schedule.Date{Year: 2024, Month: time.March, Day: 1}, db)
	if err != nil {
		t.Fatal(err)
	}
	if got != (schedule.TimeOfDay{Hour: 4, Minute: 30}) || days != 1 {
		t.Errorf("ShiftClock = %v, %d", got, days)
	}
}

func TestFormatOffset(t *testing.T) {
	cases := map[int]string{0: "+00:00", 330: "+05:30", -570: "-09:30", 765: "+12:45"}
	for in, want := range cases {
		if got := FormatOffset(in); got != want {
			t.Errorf("FormatOffset(%d) = %q, want %q", in, got, want)
		}
	}
}
