package schedule

import "testing"

func TestNextCircularValue(t *testing.T) {
	cases := []struct {
		value, min, max, offset int
		want                    int
	}{
		{6, 0, 6, 1, 0},
		{0, 0, 6, -1, 6},
		{3, 0, 6, 1, 4},
		{3, 0, 6, -1, 2},
		{31, 1, 31, 1, 1},
		{1, 1, 31, -1, 31},
		{30, 1, 31, 1, 31},
		{12, 1, 12, 1, 1},
		{1, 1, 12, -1, 12},
		{5, 1, 12, 0, 5},
	}
	for _, c := range cases {
		if got := NextCircularValue(c.value, c.min, c.max, c.offset); got != c.want {
			t.Errorf("NextCircularValue(%d, %d, %d, %d) = %d, want %d", c.value, c.min, c.max, c.offset, got, c.want)
		}
	}
}

func TestNextCircularValueBoundaries(t *testing.T) {
	domains := [][2]int{{0, 6}, {1, 31}, {1, 12}}
	for _, d := range domains {
		min, max := d[0], d[1]
		for v := min; v <= max; v++ {
			if got := NextCircularValue(v, min, max, 0); got != v {
				t.Errorf("[%d,%d] offset 0 moved %d to %d", min, max, v, got)
			}
			up := NextCircularValue(v, min, max, 1)
			if NextCircularValue(up, min, max, -1) != v {
				t.Errorf("[%d,%d] %d +1 -1 did not return", min, max, v)
			}
		}
		if got := NextCircularValue(max, min, max, 1); got != min {
			t.Errorf("[%d,%d] max+1 = %d, want %d", min, max, got, min)
		}
		if got := NextCircularValue(min, min, max, -1); got != max {
			t.Errorf("[%d,%d] min-1 = %d, want %d", min, max, got, max)
		}
	}
}

func TestNextCircularValueRejectsMultiStep(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("offset 2 did not panic")
		}
	}()
	NextCircularValue(5, 0, 6, 2)
}
