package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads klines from a file with a header row naming at least
// Open, High, Low and Close. OpenTime, Volume and CloseTime are optional;
// unknown columns (e.g. a dataframe index) are ignored.
func LoadCSV(path string) ([]Kline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader) ([]Kline, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoKlines
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv header missing %q column", required)
		}
	}

	var out []Kline
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		var k Kline
		var perr error
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		parseF := func(name string, required bool) float64 {
			s := field(name)
			if s == "" {
				if required && perr == nil {
					perr = fmt.Errorf("line %d: empty %s", line, name)
				}
				return 0
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil && perr == nil {
				perr = fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			return v
		}
		parseI := func(name string) int64 {
			s := field(name)
			if s == "" {
				return 0
			}
			// pandas writes integer columns read back as floats, e.g. "1.56e12"
			v, err := strconv.ParseFloat(s, 64)
			if err != nil && perr == nil {
				perr = fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			return int64(v)
		}

		k.OpenTime = parseI("opentime")
		k.Open = parseF("open", true)
		k.High = parseF("high", true)
		k.Low = parseF("low", true)
		k.Close = parseF("close", true)
		k.Volume = parseF("volume", false)
		k.CloseTime = parseI("closetime")
		if perr != nil {
			return nil, perr
		}
		out = append(out, k)
	}

	if len(out) == 0 {
		return nil, ErrNoKlines
	}
	return out, nil
}
