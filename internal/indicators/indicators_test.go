package indicators

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	if got := SMA([]float64{1, 2, 3, 4}, 2); got != 3.5 {
		t.Fatalf("SMA=%v, expected 3.5", got)
	}
	if got := SMA([]float64{1}, 2); got != 0 {
		t.Fatalf("short SMA=%v, expected 0", got)
	}
}

func TestEMA(t *testing.T) {
	got := EMA([]float64{math.NaN(), 2, 4, 6, 8}, 2)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("warm-up not NaN: %v", got)
	}
	// seed = (2+4)/2, then k = 2/3
	want := []float64{3, 6*2.0/3 + 3.0/3, 0}
	want[2] = 8*2.0/3 + want[1]/3
	for i, w := range want {
		if math.Abs(got[i+2]-w) > 1e-12 {
			t.Fatalf("EMA[%d]=%v, expected %v", i+2, got[i+2], w)
		}
	}
}

func TestRSI(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6}
	got := RSI(rising, 3)
	for i := 0; i < 3; i++ {
		if !math.IsNaN(got[i]) {
			t.Fatalf("RSI[%d]=%v, expected NaN", i, got[i])
		}
	}
	if got[3] != 100 || got[5] != 100 {
		t.Fatalf("rising RSI=%v, expected 100", got)
	}

	// alternating equal moves settle at 50 after the seed window
	alt := []float64{10, 11, 10, 11, 10}
	got = RSI(alt, 2)
	if math.Abs(got[2]-50) > 1e-9 {
		t.Fatalf("RSI[2]=%v, expected 50", got[2])
	}
}

func TestCCI(t *testing.T) {
	flat := []float64{5, 5, 5, 5}
	got := CCI(flat, flat, flat, 3)
	if !math.IsNaN(got[1]) || got[2] != 0 || got[3] != 0 {
		t.Fatalf("flat CCI=%v, expected NaN,NaN,0,0", got)
	}

	// typical prices 1,2,3: mean 2, mean deviation 2/3
	c := []float64{1, 2, 3}
	got = CCI(c, c, c, 3)
	want := (3 - 2) / (0.015 * (2.0 / 3))
	if math.Abs(got[2]-want) > 1e-9 {
		t.Fatalf("CCI=%v, expected %v", got[2], want)
	}
}

func TestRSIBandsBracketClose(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 3*math.Sin(float64(i)/3)
	}
	upper, lower := RSIBands(closes, 14, 70, 30)

	defined := 0
	for i := range closes {
		if math.IsNaN(upper[i]) {
			continue
		}
		defined++
		if !(lower[i] < upper[i]) {
			t.Fatalf("bar %d: lower %v not below upper %v", i, lower[i], upper[i])
		}
	}
	if defined == 0 {
		t.Fatalf("no band values computed")
	}
	if !math.IsNaN(upper[0]) {
		t.Fatalf("first bar should be NaN")
	}
}

func TestRSIBandsAlignWithCurrentBar(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + 3*math.Sin(float64(i)/3)
	}
	upper, lower := RSIBands(closes, 5, 70, 30)

	// bar k only sees closes up to k
	const k = 20
	pu, pl := RSIBands(closes[:k+1], 5, 70, 30)
	if math.Abs(pu[k]-upper[k]) > 1e-9 || math.Abs(pl[k]-lower[k]) > 1e-9 {
		t.Fatalf("bar %d differs on a prefix: %v/%v vs %v/%v", k, pu[k], pl[k], upper[k], lower[k])
	}

	// and moves with close k itself, not with close k-1 only
	moved := append([]float64(nil), closes...)
	moved[k] += 1
	mu, _ := RSIBands(moved, 5, 70, 30)
	if mu[k] == upper[k] {
		t.Fatalf("upper[%d] ignored close %d", k, k)
	}
	if mu[k-1] != upper[k-1] {
		t.Fatalf("upper[%d] changed when only close %d moved", k-1, k)
	}
}

func TestEngineCompute(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	f := NewEngine(2, 70, 30, 2).Compute(closes, closes, closes)
	if f.Len() != 5 || len(f.CCI) != 5 || len(f.Upper) != 5 || len(f.RSI) != 5 {
		t.Fatalf("frame series misaligned: %+v", f)
	}
}
