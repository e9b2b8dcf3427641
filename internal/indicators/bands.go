package indicators

import "math"

// RSIBands projects the overbought and oversold RSI levels back onto price:
// upper[i] is the close at which RSI would reach ob, lower[i] the close at
// which it would reach os. Both are NaN until the smoothed moves are defined.
func RSIBands(closes []float64, length int, ob, os float64) (upper, lower []float64) {
	n := len(closes)
	upper, lower = nanSeries(n), nanSeries(n)
	if length < 2 || n < 2 || ob <= 0 || ob >= 100 || os <= 0 || os >= 100 {
		return upper, lower
	}

	ups, downs := nanSeries(n), nanSeries(n)
	for i := 1; i < n; i++ {
		ups[i] = math.Max(closes[i]-closes[i-1], 0)
		downs[i] = math.Max(closes[i-1]-closes[i], 0)
	}

	ep := 2*length - 1
	auc := EMA(ups, ep)
	adc := EMA(downs, ep)

	for i := range closes {
		if math.IsNaN(auc[i]) || math.IsNaN(adc[i]) {
			continue
		}
		upper[i] = closes[i] + bandOffset(length, ob, auc[i], adc[i])
		lower[i] = closes[i] + bandOffset(length, os, auc[i], adc[i])
	}
	return upper, lower
}

func bandOffset(length int, level, auc, adc float64) float64 {
	x := float64(length-1) * (adc*level/(100-level) - auc)
	if x >= 0 {
		return x
	}
	return x * (100 - level) / level
}
