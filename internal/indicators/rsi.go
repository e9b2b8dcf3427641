package indicators

// RSI computes a Wilder-smoothed Relative Strength Index series. The first
// period entries are NaN.
func RSI(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	gain := 0.0
	loss := 0.0
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		up, down := 0.0, 0.0
		if change > 0 {
			up = change
		} else {
			down = -change
		}
		avgGain = (avgGain*(p-1) + up) / p
		avgLoss = (avgLoss*(p-1) + down) / p
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
