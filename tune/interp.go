package tune

// lerp performs linear interpolation between a and b at parameter t in
// [0,1].
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// bracketMIndex returns the grid indices (lo, hi) of the M-points that
// bracket target within [m_step, m_step*m_num]. Callers must have already
// range-checked target against that domain (estimator.go does, via
// OutOfRange). If target lands exactly on a grid point, lo == hi.
func bracketMIndex(mStep, mNum, target int) (lo, hi int) {
	// target == mStep*(i+1)  =>  i = target/mStep - 1
	if target%mStep == 0 {
		i := target/mStep - 1
		if i >= 0 && i < mNum {
			return i, i
		}
	}
	i := target/mStep - 1
	if i < 0 {
		return 0, 0
	}
	if i >= mNum-1 {
		return mNum - 1, mNum - 1
	}
	return i, i + 1
}
