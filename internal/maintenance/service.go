package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	appLog "edgemaint/internal/log"
	"edgemaint/internal/model"
	"edgemaint/internal/schedule"
)

// ErrPartialWrite matches every *WriteError.
var ErrPartialWrite = errors.New("maintenance: partial write")

// WriteError reports a save where at least one store write failed. The
// writes that did succeed are not undone.
type WriteError struct {
	// Written holds the IDs of records created or updated.
	Written []string
	// Deleted holds the IDs of stale records removed.
	Deleted []string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("maintenance: partial write (written %v, deleted %v): %v", e.Written, e.Deleted, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrPartialWrite }

// Store is the schedule store. *backend.Client implements it.
type Store interface {
	Create(ctx context.Context, m model.Maintenance) (model.Maintenance, error)
	Update(ctx context.Context, m model.Maintenance) (model.Maintenance, error)
	Get(ctx context.Context, id string) (model.Maintenance, error)
	Delete(ctx context.Context, id string) error
}

// Service saves and loads maintenance windows.
type Service struct {
	store  Store
	oracle schedule.Oracle
	now    func() time.Time
}

func NewService(store Store, o schedule.Oracle) *Service {
	return &Service{store: store, oracle: o, now: time.Now}
}

// Today is the reference date conversions run against.
func (s *Service) Today() schedule.Date {
	return schedule.DateOf(s.now().UTC())
}

// Result is a completed save.
type Result struct {
	Records []model.Maintenance `json:"records"`
	Deleted []string            `json:"deleted,omitempty"`
	Split   bool                `json:"split"`
}

// IDs returns the stored record IDs in order.
func (r Result) IDs() []string {
	ids := make([]string, len(r.Records))
	for i, m := range r.Records {
		ids[i] = m.ID
	}
	return ids
}

// Records converts a form to the records it stores, without writing
// anything. The second result reports a split pair.
func (s *Service) Records(f Form) ([]model.Maintenance, bool, error) {
	if !f.Repeating {
		w, err := f.Window()
		if err != nil {
			return nil, false, err
		}
		occ, err := w.Occurrence(f.Timezone, s.oracle)
		if err != nil {
			return nil, false, zoneError(err)
		}
		if !occ.OpenEnded && occ.End < occ.Start {
			return nil, false, invalid("end", errors.New("end is before start"))
		}
		return []model.Maintenance{model.FromSingle(f.base(), occ)}, false, nil
	}

	l, err := f.Rule()
	if err != nil {
		return nil, false, err
	}
	conv, err := schedule.Forward(l, s.Today(), s.oracle)
	if err != nil {
		return nil, false, zoneError(err)
	}
	var out []model.Maintenance
	for _, r := range conv.Rules() {
		out = append(out, model.FromRule(f.base(), r))
	}
	return out, conv.Split(), nil
}

func zoneError(err error) error {
	if errors.Is(err, schedule.ErrUnknownZone) {
		return invalid("timezone", err)
	}
	return err
}

type op int

const (
	opCreate op = iota
	opUpdate
	opDelete
)

type write struct {
	op  op
	rec model.Maintenance
	id  string
	out model.Maintenance
	err error
}

// Save validates and converts f, then writes every resulting record
// concurrently. Records already listed in f.IDs are updated in place;
// missing ones are created and surplus ones deleted, so switching between
// a single record and a split pair keeps the store consistent.
//
// Save returns a *WriteError if any write failed. Successful writes stay.
func (s *Service) Save(ctx context.Context, f Form) (Result, error) {
	records, split, err := s.Records(f)
	if err != nil {
		return Result{}, err
	}

	n := max(len(records), len(f.IDs))
	writes := make([]write, n)
	for i := range writes {
		switch {
		case i < len(records) && i < len(f.IDs):
			rec := records[i]
			rec.ID = f.IDs[i]
			writes[i] = write{op: opUpdate, rec: rec, id: rec.ID}
		case i < len(records):
			writes[i] = write{op: opCreate, rec: records[i]}
		default:
			writes[i] = write{op: opDelete, id: f.IDs[i]}
		}
	}

	var wg sync.WaitGroup
	for i := range writes {
		w := &writes[i]
		wg.Go(func() {
			switch w.op {
			case opCreate:
				w.out, w.err = s.store.Create(ctx, w.rec)
			case opUpdate:
				w.out, w.err = s.store.Update(ctx, w.rec)
			case opDelete:
				w.err = s.store.Delete(ctx, w.id)
			}
		})
	}
	wg.Wait()

	var (
		res  = Result{Split: split}
		errs []error
	)
	for _, w := range writes {
		if w.err != nil {
			errs = append(errs, w.err)
			continue
		}
		if w.op == opDelete {
			res.Deleted = append(res.Deleted, w.id)
			continue
		}
		if w.out.ID == "" {
			w.out.ID = w.id
		}
		res.Records = append(res.Records, w.out)
	}
	if len(errs) > 0 {
		werr := &WriteError{Written: res.IDs(), Deleted: res.Deleted, Err: errors.Join(errs...)}
		appLog.Error("maintenance save incomplete", werr, "name", f.Name, "split", split)
		return Result{}, werr
	}
	appLog.Info("maintenance saved", "name", f.Name, "ids", strings.Join(res.IDs(), ","), "split", split)
	return res, nil
}

// Loaded is a stored window read back for display in one zone.
type Loaded struct {
	Form    Form                       `json:"form"`
	Records []model.Maintenance        `json:"records"`
	Rules   []schedule.RecurringRule   `json:"-"`
	Single  *schedule.SingleOccurrence `json:"-"`
}

// Load fetches the records named by ids (one record or a split pair) and
// recomputes the editor's local values in zone.
func (s *Service) Load(ctx context.Context, ids []string, zone string) (*Loaded, error) {
	if len(ids) == 0 || len(ids) > 2 {
		return nil, invalid("ids", fmt.Errorf("expected 1 or 2 ids, got %d", len(ids)))
	}
	if zone == "" {
		return nil, invalid("timezone", errors.New("timezone is required"))
	}

	records := make([]model.Maintenance, 0, len(ids))
	for _, id := range ids {
		m, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if m.ID == "" {
			m.ID = id
		}
		records = append(records, m)
	}
	return s.Localize(records, zone)
}

// Localize recomputes the editor's local values in zone from stored
// records: one record or the two halves of a split pair.
func (s *Service) Localize(records []model.Maintenance, zone string) (*Loaded, error) {
	if len(records) == 0 || len(records) > 2 {
		return nil, invalid("records", fmt.Errorf("expected 1 or 2 records, got %d", len(records)))
	}
	if zone == "" {
		return nil, invalid("timezone", errors.New("timezone is required"))
	}

	out := &Loaded{Records: records}
	ids := make([]string, 0, len(records))
	for _, m := range records {
		sch, err := m.Schedule()
		if err != nil {
			return nil, invalid("records", err)
		}
		switch v := sch.(type) {
		case schedule.SingleOccurrence:
			if len(records) != 1 {
				return nil, invalid("records", fmt.Errorf("%q is one-time and cannot be paired", m.ID))
			}
			out.Single = &v
		case schedule.RecurringRule:
			out.Rules = append(out.Rules, v)
		}
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}

	first := records[0]
	f := Form{Name: first.Name, Description: first.Description, Target: first.Target}
	if len(ids) > 0 {
		f.IDs = ids
	}
	if out.Single != nil {
		w, err := out.Single.Localize(zone, s.oracle)
		if err != nil {
			return nil, zoneError(err)
		}
		out.Form = windowForm(f, zone, w)
		return out, nil
	}
	l, err := schedule.Localize(out.Rules, zone, s.Today(), s.oracle)
	if err != nil {
		return nil, zoneError(err)
	}
	out.Form = ruleForm(f, l)
	return out, nil
}

// Describe renders the loaded schedule in zone.
func (s *Service) Describe(l *Loaded, zone string) schedule.Description {
	if l.Single != nil {
		return schedule.DescribeSingle(*l.Single, zone, s.oracle)
	}
	return schedule.DescribeRecurring(l.Rules, zone, s.Today(), s.oracle)
}
