package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Value domains for the cron-like fields.
const (
	MinWeekday  = 0
	MaxWeekday  = 6
	MinMonthDay = 1
	MaxMonthDay = 31
	MinMonth    = 1
	MaxMonth    = 12
)

// Set is either the wildcard ("*") or an ordered list of distinct values.
// Order is preserved through shifting so that a UTC set lines up with the
// local set it came from.
type Set struct {
	all    bool
	values []int
}

// Wildcard returns the "*" set.
func Wildcard() Set {
	return Set{all: true}
}

// SetOf returns a set holding values in the given order, dropping repeats.
func SetOf(values ...int) Set {
	out := make([]int, 0, len(values))
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return Set{values: out}
}

func (s Set) IsWildcard() bool { return s.all }

// Len returns the number of explicit values; zero for the wildcard.
func (s Set) Len() int { return len(s.values) }

// Values returns a copy of the explicit values.
func (s Set) Values() []int {
	if s.all {
		return nil
	}
	return append([]int(nil), s.values...)
}

func (s Set) Contains(v int) bool {
	if s.all {
		return true
	}
	for _, x := range s.values {
		if x == v {
			return true
		}
	}
	return false
}

// Equal reports whether both sets hold the same values in the same order.
func (s Set) Equal(o Set) bool {
	if s.all || o.all {
		return s.all == o.all
	}
	if len(s.values) != len(o.values) {
		return false
	}
	for i := range s.values {
		if s.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// String renders the backend form: "*" or "1,3,31".
func (s Set) String() string {
	if s.all {
		return "*"
	}
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// ParseSet parses the backend form of a set and checks every value
// against [min, max].
func ParseSet(raw string, min, max int) (Set, error) {
	raw = strings.TrimSpace(raw)
	if raw == "*" {
		return Wildcard(), nil
	}
	if raw == "" {
		return Set{}, fmt.Errorf("schedule: empty set")
	}
	var values []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Set{}, fmt.Errorf("schedule: bad set element %q: %w", part, err)
		}
		values = append(values, n)
	}
	s := SetOf(values...)
	if err := ValidateSet(s, min, max, "set"); err != nil {
		return Set{}, err
	}
	return s, nil
}

// ValidateSet checks that s is the wildcard or a non-empty set within
// [min, max].
func ValidateSet(s Set, min, max int, field string) error {
	if s.all {
		return nil
	}
	if len(s.values) == 0 {
		return &RangeError{Field: field, Min: min, Max: max, Empty: true}
	}
	for _, v := range s.values {
		if v < min || v > max {
			return &RangeError{Field: field, Value: v, Min: min, Max: max}
		}
	}
	return nil
}

// shift applies NextCircularValue to every element.
func (s Set) shift(min, max, offset int) Set {
	if s.all || offset == 0 {
		return s
	}
	out := make([]int, len(s.values))
	for i, v := range s.values {
		out[i] = NextCircularValue(v, min, max, offset)
	}
	return SetOf(out...)
}

// without returns s minus v, preserving order.
func (s Set) without(v int) Set {
	out := make([]int, 0, len(s.values))
	for _, x := range s.values {
		if x != v {
			out = append(out, x)
		}
	}
	return Set{values: out}
}

// union appends the values of o that s lacks. A wildcard absorbs anything.
func (s Set) union(o Set) Set {
	if s.all || o.all {
		return Wildcard()
	}
	return SetOf(append(s.Values(), o.values...)...)
}
