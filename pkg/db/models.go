package db

// Kline is one stored candlestick row.
type Kline struct {
	Symbol    string
	Interval  string
	OpenTime  int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64
}
