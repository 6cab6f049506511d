package ics

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	ical "github.com/arran4/golang-ical"
	"github.com/google/go-cmp/cmp"
	"github.com/teambition/rrule-go"

	"edgemaint/internal/model"
	"edgemaint/internal/preview"
	"edgemaint/internal/schedule"
)

var from = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

func weeklyRecord() model.Maintenance {
	return model.FromRule(
		model.Maintenance{ID: "w1", Name: "patch", Target: model.Target{Kind: "host", ID: "db-1"}},
		schedule.RecurringRule{Hour: 23, Cadence: schedule.Weekly, Days: schedule.SetOf(0, 3), Months: schedule.Wildcard(), Duration: time.Hour},
	)
}

// splitPair is local 05:00 Tokyo on March 1st and 15th.
func splitPair() []model.Maintenance {
	return []model.Maintenance{
		model.FromRule(model.Maintenance{ID: "p1", Name: "firmware"},
			schedule.RecurringRule{Hour: 20, Cadence: schedule.Monthly, Days: schedule.SetOf(14), Months: schedule.SetOf(3), Duration: 30 * time.Minute}),
		model.FromRule(model.Maintenance{ID: "p2", Name: "firmware"},
			schedule.RecurringRule{Hour: 20, Cadence: schedule.Monthly, Days: schedule.SetOf(31), Months: schedule.SetOf(2), Duration: 30 * time.Minute, Spillover: schedule.CountsIntoPreviousMonth}),
	}
}

func TestOption(t *testing.T) {
	r := schedule.RecurringRule{Hour: 3, Minute: 15, Cadence: schedule.Monthly, Days: schedule.SetOf(31), Months: schedule.SetOf(2, 4), Spillover: schedule.CountsIntoPreviousMonth}
	got := Option(r)
	type fields struct {
		Freq       rrule.Frequency
		Interval   int
		Bymonth    []int
		Bymonthday []int
		Byhour     []int
		Byminute   []int
		Bysecond   []int
	}
	want := fields{rrule.MONTHLY, 1, []int{2, 4}, []int{-1}, []int{3}, []int{15}, []int{0}}
	if diff := cmp.Diff(want, fields{got.Freq, got.Interval, got.Bymonth, got.Bymonthday, got.Byhour, got.Byminute, got.Bysecond}); diff != "" {
		t.Errorf("Option() mismatch (-want +got):\n%s", diff)
	}
	if len(got.Byweekday) != 0 {
		t.Errorf("monthly Option() has weekdays %v", got.Byweekday)
	}

	weekly := Option(weeklyRecordRule(t))
	if weekly.Freq != rrule.WEEKLY || len(weekly.Byweekday) != 2 || weekly.Byweekday[0] != rrule.SU || weekly.Byweekday[1] != rrule.WE {
		t.Errorf("weekly Option() = %+v", weekly)
	}
}

func weeklyRecordRule(t *testing.T) schedule.RecurringRule {
	t.Helper()
	s, err := weeklyRecord().Schedule()
	if err != nil {
		t.Fatal(err)
	}
	return s.(schedule.RecurringRule)
}

// The exported RRULE and cron preview must agree on every window.
func TestExportAgreesWithPreview(t *testing.T) {
	records := append([]model.Maintenance{weeklyRecord()}, splitPair()...)
	out, err := Export(records, ExportOptions{ProductID: "-//test//EN", From: from})
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if !strings.Contains(out, "PRODID:-//test//EN") {
		t.Errorf("missing product id:\n%s", out)
	}

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ParseCalendar() error: %v", err)
	}
	events := cal.Events()
	if len(events) != len(records) {
		t.Fatalf("got %d events, want %d", len(events), len(records))
	}

	for i, ev := range events {
		rec := records[i]
		if uid := ev.GetProperty(ical.ComponentPropertyUniqueId).Value; uid != rec.ID+"@edgemaint" {
			t.Errorf("event %d uid = %q", i, uid)
		}
		start, err := ev.GetStartAt()
		if err != nil {
			t.Fatal(err)
		}
		rrProp := ev.GetProperty(ical.ComponentPropertyRrule)
		if rrProp == nil {
			t.Fatalf("event %d has no RRULE", i)
		}
		opt, err := rrule.StrToROption(rrProp.Value)
		if err != nil {
			t.Fatalf("event %d RRULE %q: %v", i, rrProp.Value, err)
		}
		opt.Dtstart = start
		rr, err := rrule.NewRRule(*opt)
		if err != nil {
			t.Fatal(err)
		}
		got := rr.Between(from, from.AddDate(5, 0, 0), true)
		if len(got) > 4 {
			got = got[:4]
		}

		s, err := rec.Schedule()
		if err != nil {
			t.Fatal(err)
		}
		windows, err := preview.Upcoming([]schedule.RecurringRule{s.(schedule.RecurringRule)}, from, 4, time.UTC)
		if err != nil {
			t.Fatal(err)
		}
		var want []time.Time
		for _, w := range windows {
			want = append(want, w.Start)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("record %s windows mismatch (-preview +rrule):\n%s", rec.ID, diff)
		}
	}
}

func TestExportSingle(t *testing.T) {
	start := time.Date(2024, time.March, 2, 1, 0, 0, 0, time.UTC)
	records := []model.Maintenance{
		model.FromSingle(model.Maintenance{ID: "s1", Name: "swap disk"}, schedule.NewSingleOccurrence(start.Unix(), start.Add(2*time.Hour).Unix(), false)),
		model.FromSingle(model.Maintenance{ID: "s2", Name: "freeze"}, schedule.NewSingleOccurrence(start.Unix(), 0, true)),
	}
	out, err := Export(records, ExportOptions{From: from})
	if err != nil {
		t.Fatal(err)
	}
	windows, err := ParseWindows([]byte(out))
	if err != nil {
		t.Fatalf("ParseWindows() error: %v", err)
	}
	want := []ImportedWindow{
		{UID: "s1@edgemaint", Summary: "swap disk", Occurrence: schedule.SingleOccurrence{Start: start.Unix(), End: start.Add(2 * time.Hour).Unix()}},
		{UID: "s2@edgemaint", Summary: "freeze", Occurrence: schedule.SingleOccurrence{Start: start.Unix(), OpenEnded: true}},
	}
	if diff := cmp.Diff(want, windows); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseWindowsWithZone(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:a",
		"DTSTAMP:20240101T000000Z",
		"SUMMARY:core switch",
		"DTSTART;TZID=America/New_York:20240310T013000",
		"DTEND;TZID=America/New_York:20240310T040000",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:b",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240101T000000Z",
		"RRULE:FREQ=DAILY",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240101T000000Z",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n")

	got, err := ParseWindows([]byte(body))
	if err != nil {
		t.Fatalf("ParseWindows() error: %v", err)
	}
	// 01:30 EST is 06:30 UTC; 04:00 EDT is 08:00 UTC.
	want := []ImportedWindow{{
		UID:     "a",
		Summary: "core switch",
		Occurrence: schedule.SingleOccurrence{
			Start: time.Date(2024, time.March, 10, 6, 30, 0, 0, time.UTC).Unix(),
			End:   time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC).Unix(),
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseWindows() mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseWindows(nil); err == nil {
		t.Error("ParseWindows accepted an empty body")
	}
}

func TestExpand(t *testing.T) {
	records := splitPair()
	single := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
	records = append(records, model.FromSingle(model.Maintenance{ID: "s1", Name: "freeze"}, schedule.NewSingleOccurrence(single.Unix(), 0, true)))

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}
	res, err := Expand(records, ExpandConfig{
		DisplayLocation: tokyo,
		RangeStart:      from,
		RangeEnd:        time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	type window struct {
		ID    string
		Start time.Time
	}
	var got []window
	for _, o := range res.Occurrences {
		got = append(got, window{o.ID, o.Start})
	}
	want := []window{
		{"s1", single},
		{"p2", time.Date(2024, time.March, 1, 5, 0, 0, 0, tokyo)},
		{"p1", time.Date(2024, time.March, 15, 5, 0, 0, 0, tokyo)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
	}
	if len(res.Truncated) != 0 {
		t.Errorf("Expand() truncated %v", res.Truncated)
	}

	capped, err := Expand([]model.Maintenance{weeklyRecord()}, ExpandConfig{
		RangeStart:              from,
		RangeEnd:                from.AddDate(1, 0, 0),
		MaxOccurrencesPerRecord: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(capped.Occurrences) != 3 || len(capped.Truncated) != 1 {
		t.Errorf("capped Expand() = %d occurrences, truncated %v", len(capped.Occurrences), capped.Truncated)
	}

	if _, err := Expand(nil, ExpandConfig{RangeStart: from, RangeEnd: from.Add(-time.Hour)}); err == nil {
		t.Error("Expand accepted an inverted range")
	}
}
