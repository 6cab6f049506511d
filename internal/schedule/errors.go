package schedule

import (
	"errors"
	"fmt"
)

// ErrUnknownZone is returned (wrapped) when the oracle does not know a
// timezone identifier.
var ErrUnknownZone = errors.New("unknown timezone")

// ErrNotLocalizable is returned (wrapped) when stored rules have no single
// set of local values in the requested zone.
var ErrNotLocalizable = errors.New("rules have no single local form in this zone")

// RangeError describes a field value outside its domain. Form validation
// returns it; the converters panic with it.
type RangeError struct {
	Field string
	Value int
	Min   int
	Max   int
	Empty bool
}

func (e *RangeError) Error() string {
	if e.Empty {
		return fmt.Sprintf("schedule: %s must not be empty", e.Field)
	}
	return fmt.Sprintf("schedule: %s %d out of range [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

func checkRange(field string, v, min, max int) error {
	if v < min || v > max {
		return &RangeError{Field: field, Value: v, Min: min, Max: max}
	}
	return nil
}

// must panics on contract violations the caller should have validated.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
