package indicators

import "math"

// CCI computes the Commodity Channel Index over the typical price
// (high+low+close)/3. The first period-1 entries are NaN; a window with
// zero mean deviation yields 0.
func CCI(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := nanSeries(n)
	if period <= 0 || len(high) != n || len(low) != n || n < period {
		return out
	}

	tp := make([]float64, n)
	for i := range close {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}

	for i := period - 1; i < n; i++ {
		window := tp[i-period+1 : i+1]
		mean := SMA(window, period)
		dev := 0.0
		for _, v := range window {
			dev += math.Abs(v - mean)
		}
		dev /= float64(period)
		if dev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - mean) / (0.015 * dev)
	}
	return out
}
