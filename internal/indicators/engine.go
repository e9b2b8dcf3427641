package indicators

// Frame holds the indicator series for one price history, all aligned with
// the input bars.
type Frame struct {
	Close []float64
	RSI   []float64
	Upper []float64
	Lower []float64
	CCI   []float64
}

// Len is the number of bars in the frame.
func (f Frame) Len() int { return len(f.Close) }

// Engine computes the RSI band and CCI series a strategy needs.
type Engine struct {
	rsiLength int
	obLevel   float64
	osLevel   float64
	cciPeriod int
}

// NewEngine builds an indicator engine for the given parameters.
func NewEngine(rsiLength int, obLevel, osLevel float64, cciPeriod int) *Engine {
	return &Engine{
		rsiLength: rsiLength,
		obLevel:   obLevel,
		osLevel:   osLevel,
		cciPeriod: cciPeriod,
	}
}

// Compute evaluates every series over the given bars. The input slices
// must have equal length.
func (e *Engine) Compute(high, low, close []float64) Frame {
	upper, lower := RSIBands(close, e.rsiLength, e.obLevel, e.osLevel)
	return Frame{
		Close: close,
		RSI:   RSI(close, e.rsiLength),
		Upper: upper,
		Lower: lower,
		CCI:   CCI(high, low, close, e.cciPeriod),
	}
}
