package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"edgemaint/internal/schedule"
)

var setComparer = cmp.Comparer(func(a, b schedule.Set) bool { return a.Equal(b) })

func TestFromRuleWireShape(t *testing.T) {
	base := Maintenance{Name: "kernel patch", Target: Target{Kind: "site", ID: "site-7"}}
	r := schedule.RecurringRule{
		Hour:      3,
		Minute:    5,
		Cadence:   schedule.Monthly,
		Days:      schedule.SetOf(1),
		Months:    schedule.SetOf(3, 7, 9, 1),
		Duration:  2 * time.Hour,
		Spillover: schedule.CountsIntoNextMonth,
	}
	got, err := json.Marshal(FromRule(base, r))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"name":"kernel patch","target":{"kind":"site","id":"site-7"},"repeating":true,` +
		`"hour":"3","minute":"5","day_of_week":"*","day_of_month":"1","month":"3,7,9,1","duration":7200,"spillover":"next_month"}`
	if string(got) != want {
		t.Errorf("wire shape\n got %s\nwant %s", got, want)
	}
}

func TestScheduleParsesRecords(t *testing.T) {
	cases := []struct {
		name string
		in   Maintenance
		want schedule.Schedule
	}{
		{
			name: "weekly",
			in:   Maintenance{Repeating: true, Hour: "23", Minute: "0", DayOfWeek: "2,4,6", DayOfMonth: "*", Month: "*", Duration: 3600},
			want: schedule.RecurringRule{Hour: 23, Cadence: schedule.Weekly, Days: schedule.SetOf(2, 4, 6), Months: schedule.Wildcard(), Duration: time.Hour},
		},
		{
			name: "monthly carried half",
			in:   Maintenance{Repeating: true, Hour: "3", Minute: "0", DayOfWeek: "*", DayOfMonth: "31", Month: "12,2", Spillover: "previous_month"},
			want: schedule.RecurringRule{Hour: 3, Cadence: schedule.Monthly, Days: schedule.SetOf(31), Months: schedule.SetOf(12, 2), Spillover: schedule.CountsIntoPreviousMonth},
		},
		{
			name: "empty lists are wildcards",
			in:   Maintenance{Repeating: true, Hour: "1", Minute: "30"},
			want: schedule.RecurringRule{Hour: 1, Minute: 30, Cadence: schedule.Weekly, Days: schedule.Wildcard(), Months: schedule.Wildcard()},
		},
		{
			name: "one-time open-ended",
			in:   Maintenance{StartTime: 1700000000},
			want: schedule.SingleOccurrence{Start: 1700000000, OpenEnded: true},
		},
		{
			name: "one-time bounded",
			in:   Maintenance{StartTime: 1700000000, EndTime: 1700003600},
			want: schedule.SingleOccurrence{Start: 1700000000, End: 1700003600},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.in.Schedule()
			if err != nil {
				t.Fatalf("Schedule() error: %v", err)
			}
			if diff := cmp.Diff(c.want, got, setComparer); diff != "" {
				t.Errorf("Schedule() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScheduleRejectsBadRecords(t *testing.T) {
	bad := []Maintenance{
		{Repeating: true, Hour: "24", Minute: "0"},
		{Repeating: true, Hour: "x", Minute: "0"},
		{Repeating: true, Hour: "1", Minute: "0", DayOfWeek: "1", DayOfMonth: "1"},
		{Repeating: true, Hour: "1", Minute: "0", Month: "13"},
		{Repeating: true, Hour: "1", Minute: "0", Spillover: "sideways"},
		{Repeating: false},
	}
	for _, m := range bad {
		if s, err := m.Schedule(); err == nil {
			t.Errorf("Schedule(%+v) = %+v, want error", m, s)
		}
	}
}

func TestRuleRoundTripThroughRecord(t *testing.T) {
	r := schedule.RecurringRule{Hour: 19, Minute: 45, Cadence: schedule.Monthly, Days: schedule.SetOf(14, 19), Months: schedule.SetOf(1, 3), Duration: 30 * time.Minute}
	got, err := FromRule(Maintenance{}, r).Schedule()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(schedule.Schedule(r), got, setComparer); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	single := schedule.NewSingleOccurrence(1700000000, 0, true)
	rec := FromSingle(FromRule(Maintenance{}, r), single)
	if rec.Hour != "" || rec.Repeating {
		t.Errorf("FromSingle kept recurring fields: %+v", rec)
	}
}
