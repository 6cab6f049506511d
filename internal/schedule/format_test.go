package schedule

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFormatClock(t *testing.T) {
	cases := map[TimeOfDay]string{
		{0, 0}:   "12:00 AM",
		{4, 30}:  "04:30 AM",
		{12, 5}:  "12:05 PM",
		{23, 59}: "11:59 PM",
		{24, 0}:  Placeholder,
	}
	for in, want := range cases {
		if got := FormatClock(in); got != want {
			t.Errorf("FormatClock(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                              "0:00:00",
		90 * time.Minute:               "1:30:00",
		26*time.Hour + 5*time.Second:   "26:00:05",
		-time.Second:                   Placeholder,
		3*time.Hour + 4*time.Minute + 5: "3:04:00",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatNames(t *testing.T) {
	if got := FormatWeekdays(SetOf(3, 5, 0)); got != "Sun, Wed, Fri" {
		t.Errorf("FormatWeekdays = %q", got)
	}
	if got := FormatWeekdays(Wildcard()); got != "Every day" {
		t.Errorf("FormatWeekdays(*) = %q", got)
	}
	if got := FormatMonths(SetOf(12, 3)); got != "Mar, Dec" {
		t.Errorf("FormatMonths = %q", got)
	}
	if got := FormatMonthDays(SetOf(31, 1)); got != "1, 31" {
		t.Errorf("FormatMonthDays = %q", got)
	}
	if got := FormatMonths(SetOf(13)); got != Placeholder {
		t.Errorf("FormatMonths(13) = %q", got)
	}
}

func TestDescribeRecurring(t *testing.T) {
	stored := []RecurringRule{
		{Hour: 23, Cadence: Weekly, Days: SetOf(2, 4, 6), Months: Wildcard(), Duration: 2 * time.Hour},
	}
	got := DescribeRecurring(stored, "Asia/Calcutta", refDate, locationOracle{})
	want := Description{
		Zone:     "Asia/Calcutta (IST)",
		Time:     "04:30 AM",
		Days:     "Sun, Wed, Fri",
		Months:   "Every month",
		Duration: "2:00:00",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DescribeRecurring mismatch (-want +got):\n%s", diff)
	}
	if again := DescribeRecurring(stored, "Asia/Calcutta", refDate, locationOracle{}); again != got {
		t.Errorf("second render differs: %+v", again)
	}

	bad := DescribeRecurring(stored, "Nowhere/Land", refDate, locationOracle{})
	if bad.Time != Placeholder || bad.Zone != "Nowhere/Land" {
		t.Errorf("unknown zone rendered %+v", bad)
	}
}

func TestDescribeSingle(t *testing.T) {
	start := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC).Unix()
	got := DescribeSingle(NewSingleOccurrence(start, start+5400, false), "Asia/Calcutta", locationOracle{})
	want := Description{
		Zone:     "Asia/Calcutta (IST)",
		Start:    "Sun, Jun 2 2024 03:30 AM",
		End:      "Sun, Jun 2 2024 05:00 AM",
		Duration: "1:30:00",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DescribeSingle mismatch (-want +got):\n%s", diff)
	}

	open := DescribeSingle(NewSingleOccurrence(start, 0, true), UTC, locationOracle{})
	if open.End != "Open-ended" {
		t.Errorf("open-ended End = %q", open.End)
	}
}

func TestDescribeIsRepeatable(t *testing.T) {
	pair := []RecurringRule{
		{Hour: 19, Cadence: Monthly, Days: SetOf(14, 19), Months: SetOf(1, 3), Duration: time.Hour},
		{Hour: 19, Cadence: Monthly, Days: SetOf(31), Months: SetOf(12, 2), Duration: time.Hour, Spillover: CountsIntoPreviousMonth},
	}
	weekly := []RecurringRule{{Hour: 23, Cadence: Weekly, Days: SetOf(0, 6), Months: SetOf(4), Duration: time.Minute}}
	start := time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC).Unix()

	cases := []struct {
		name     string
		describe func() Description
	}{
		{"split pair", func() Description { return DescribeRecurring(pair, "East", refDate, fixed) }},
		{"pair with no local form", func() Description { return DescribeRecurring(pair, UTC, refDate, fixed) }},
		{"weekly", func() Description { return DescribeRecurring(weekly, "Asia/Calcutta", refDate, locationOracle{}) }},
		{"single", func() Description {
			return DescribeSingle(NewSingleOccurrence(start, start+7200, false), "America/New_York", locationOracle{})
		}},
		{"open-ended single", func() Description {
			return DescribeSingle(NewSingleOccurrence(start, 0, true), "Asia/Tokyo", locationOracle{})
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			first := c.describe()
			if diff := cmp.Diff(first, c.describe()); diff != "" {
				t.Errorf("second render differs (-first +second):\n%s", diff)
			}
		})
	}

	if got := DescribeRecurring(pair, "East", refDate, fixed); got.Days != "1, 15, 20" || got.Months != "Jan, Mar" {
		t.Errorf("split pair rendered %+v", got)
	}
	if got := DescribeRecurring(pair, UTC, refDate, fixed); got.Days != Placeholder {
		t.Errorf("pair with no local form rendered %+v", got)
	}
}
