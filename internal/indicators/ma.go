package indicators

import "math"

// SMA calculates the simple moving average for the last period values.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMA returns an exponential moving average series aligned with values.
// Leading NaNs are skipped; the first output is the SMA of the first period
// valid inputs and everything before it is NaN.
func EMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}

	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	seed := start + period - 1
	if seed >= len(values) {
		return out
	}

	out[seed] = SMA(values[start:seed+1], period)
	k := 2.0 / float64(period+1)
	for i := seed + 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
