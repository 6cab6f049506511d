package schedule

// NextCircularValue returns value+offset wrapped into [min, max].
//
// Only single-step wraps are defined: offset must be -1, 0 or 1. Larger
// offsets would need the boundary cases re-derived, so they panic.
func NextCircularValue(value, min, max, offset int) int {
	if offset < -1 || offset > 1 {
		panic("schedule: circular offset out of range")
	}
	switch {
	case value == min && offset < 0:
		return max + 1 + offset
	case value == max && offset > 0:
		return min + offset - 1
	default:
		return value + offset
	}
}
