package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKlinesParsesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("path=%s, expected /api/v3/klines", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("startTime") != "1000" || q.Get("limit") != "2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[[1000,"1.5","2.0","1.0","1.8","10",1059,"18",5,"0","0","0"],[1060,"1.8","1.9","1.7","1.75","3",1119,"5",2,"0","0","0"]]`))
	}))
	defer srv.Close()

	c := NewMarketDataClientWithBase(srv.URL)
	got, err := c.Klines(context.Background(), KlineQuery{Symbol: "BTCUSDT", Interval: "1m", Limit: 2, StartTime: 1000})
	if err != nil {
		t.Fatalf("Klines returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d, expected 2", len(got))
	}
	if got[0].Close != 1.8 || got[0].OpenTime != 1000 || got[0].CloseTime != 1059 || got[0].NumberOfTrades != 5 {
		t.Fatalf("first kline=%+v", got[0])
	}
}

func TestKlinesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewMarketDataClientWithBase(srv.URL).Klines(context.Background(), KlineQuery{Symbol: "NOPE", Interval: "1m"})
	if err == nil {
		t.Fatalf("expected error for 400 response")
	}
}
