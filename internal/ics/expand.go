package ics

import (
	"errors"
	"sort"
	"time"

	appLog "edgemaint/internal/log"
	"edgemaint/internal/model"
	"edgemaint/internal/schedule"
)

const (
	defaultMaxOccurrencesPerRecord = 5000
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone all occurrences are converted to.
	// If nil, UTC is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerRecord caps the expansion of a single record. If
	// zero, defaultMaxOccurrencesPerRecord is used.
	MaxOccurrencesPerRecord int
}

// Occurrence is one concrete maintenance window.
type Occurrence struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	// End is zero for an open-ended window.
	End time.Time `json:"end"`
}

// ExpandResult wraps the expanded occurrences and the records that hit
// the cap.
type ExpandResult struct {
	Occurrences []Occurrence
	Truncated   []string
}

// Expand lists the windows of stored records that overlap the configured
// range, sorted by start. A one-time window without an end overlaps every
// range after its start.
func Expand(records []model.Maintenance, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.UTC
	}
	if cfg.MaxOccurrencesPerRecord <= 0 {
		cfg.MaxOccurrencesPerRecord = defaultMaxOccurrencesPerRecord
	}

	for _, rec := range records {
		sch, err := rec.Schedule()
		if err != nil {
			return ExpandResult{}, err
		}
		switch s := sch.(type) {
		case schedule.SingleOccurrence:
			if occ, ok := expandSingle(rec, s, cfg); ok {
				result.Occurrences = append(result.Occurrences, occ)
			}
		case schedule.RecurringRule:
			occs, hitCap, err := expandRule(rec, s, cfg)
			if err != nil {
				return ExpandResult{}, err
			}
			if hitCap {
				result.Truncated = append(result.Truncated, rec.ID)
				appLog.Error("expand: truncated occurrences due to cap",
					errors.New("max occurrences reached"),
					"id", rec.ID,
					"cap", cfg.MaxOccurrencesPerRecord,
				)
			}
			result.Occurrences = append(result.Occurrences, occs...)
		}
	}

	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		return result.Occurrences[i].Start.Before(result.Occurrences[j].Start)
	})
	return result, nil
}

func expandSingle(rec model.Maintenance, s schedule.SingleOccurrence, cfg ExpandConfig) (Occurrence, bool) {
	start := time.Unix(s.Start, 0)
	if start.After(cfg.RangeEnd) {
		return Occurrence{}, false
	}
	occ := Occurrence{ID: rec.ID, Name: rec.Name, Start: start.In(cfg.DisplayLocation)}
	if s.OpenEnded {
		return occ, true
	}
	end := time.Unix(s.End, 0)
	if end.Before(cfg.RangeStart) {
		return Occurrence{}, false
	}
	occ.End = end.In(cfg.DisplayLocation)
	return occ, true
}

func expandRule(rec model.Maintenance, r schedule.RecurringRule, cfg ExpandConfig) ([]Occurrence, bool, error) {
	// Windows that started before the range but are still running count.
	from := cfg.RangeStart.Add(-r.Duration)
	rr, err := recurrence(r, from)
	if err != nil {
		return nil, false, err
	}

	starts := rr.Between(from, cfg.RangeEnd, true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerRecord {
		starts = starts[:cfg.MaxOccurrencesPerRecord]
		hitCap = true
	}

	out := make([]Occurrence, 0, len(starts))
	for _, st := range starts {
		end := st.Add(r.Duration)
		if end.Before(cfg.RangeStart) {
			continue
		}
		out = append(out, Occurrence{
			ID:    rec.ID,
			Name:  rec.Name,
			Start: st.In(cfg.DisplayLocation),
			End:   end.In(cfg.DisplayLocation),
		})
	}
	return out, hitCap, nil
}
