package helpers

// Round2 rounds half away from zero to two decimal places, matching how the
// exchange publications quote prices and percentages.
func Round2(v float64) float64 {
	if v < 0 {
		return -float64(int64(-v*100+0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
