package tune

import "testing"

func TestLerp(t *testing.T) {
	cases := []struct {
		a, b, t, want float64
	}{
		{0, 10, 0, 0},
		{0, 10, 1, 10},
		{0, 10, 0.5, 5},
		{10, 0, 0.25, 7.5},
		{-5, 5, 0.5, 0},
	}
	for _, c := range cases {
		if got := lerp(c.a, c.b, c.t); got != c.want {
			t.Errorf("lerp(%v, %v, %v) = %v, want %v", c.a, c.b, c.t, got, c.want)
		}
	}
}

func TestBracketMIndex(t *testing.T) {
	// mStep=8, mNum=4 -> grid points 8, 16, 24, 32 at indices 0..3.
	cases := []struct {
		target     int
		lo, hi int
	}{
		{8, 0, 0},
		{16, 1, 1},
		{24, 2, 2},
		{32, 3, 3},
		{12, 0, 1},
		{20, 1, 2},
		{30, 2, 3},
	}
	for _, c := range cases {
		lo, hi := bracketMIndex(8, 4, c.target)
		if lo != c.lo || hi != c.hi {
			t.Errorf("bracketMIndex(8, 4, %d) = (%d, %d), want (%d, %d)", c.target, lo, hi, c.lo, c.hi)
		}
	}
}
