package course

// SetRandIntn replaces the random source of enrollment codes until restore is called.
func SetRandIntn(f func(n int) int) (restore func()) {
	orig := randIntn
	randIntn = f
	return func() { randIntn = orig }
}
