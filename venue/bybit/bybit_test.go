package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quoteflow/config"
	"quoteflow/internal/symbols"
)

func testVenueConfig(baseURL string) config.VenueConfig {
	return config.VenueConfig{
		Enabled:    true,
		BaseURL:    baseURL,
		Timeout:    time.Second,
		DepthLimit: 20,
	}
}

func testPool() config.ConnectionPoolConfig {
	return config.ConnectionPoolConfig{
		MaxIdleConns:    1,
		MaxConnsPerHost: 1,
		IdleConnTimeout: time.Second,
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v5/market/orderbook":
			fmt.Fprint(w, `{"retCode":0,"retMsg":"OK","result":{
				"s":"BTCUSDT",
				"b":[["100.2","3"],["100.4","1"]],
				"a":[["100.7","1"],["100.5","2"]],
				"ts":1700000000456},
				"retExtInfo":{},"time":1700000000456}`)
		case "/v5/market/tickers":
			fmt.Fprint(w, `{"retCode":0,"retMsg":"OK","result":{
				"category":"spot",
				"list":[{"symbol":"BTCUSDT","volume24h":"5678.5"}]},
				"retExtInfo":{},"time":1700000000456}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	mapper := symbols.NewMapper(symbols.DefaultTable())
	a := New(testVenueConfig(srv.URL), testPool(), mapper)
	sym, err := mapper.Lookup("BTC-USDT")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	snap, err := a.Fetch(context.Background(), sym, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if snap.Orderbook.Bids[0].Price.String() != "100.4" {
		t.Fatalf("bids not sorted descending: %+v", snap.Orderbook.Bids)
	}
	if snap.Orderbook.Asks[0].Price.String() != "100.5" {
		t.Fatalf("asks not sorted ascending: %+v", snap.Orderbook.Asks)
	}
	if snap.Orderbook.Timestamp != time.UnixMilli(1700000000456).UTC() {
		t.Fatalf("timestamp = %v", snap.Orderbook.Timestamp)
	}
	if snap.Volume24h.String() != "5678.5" {
		t.Fatalf("volume = %s", snap.Volume24h)
	}
}

func TestFetchRetCodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"retCode":10001,"retMsg":"params error","result":{},"retExtInfo":{},"time":1700000000456}`)
	}))
	defer srv.Close()

	mapper := symbols.NewMapper(symbols.DefaultTable())
	a := New(testVenueConfig(srv.URL), testPool(), mapper)
	sym, _ := mapper.Lookup("BTC-USDT")

	if _, err := a.Fetch(context.Background(), sym, 0); err == nil {
		t.Fatal("expected error for non-zero retCode")
	}
}

func TestOrderbookResultDecode(t *testing.T) {
	raw := []byte(`{"s":"ETHUSDT","b":[["3000.1","0.5"]],"a":[["3000.2","0.7"]],"ts":1700000000789,"u":12345}`)

	var book orderbookResult
	if err := json.Unmarshal(raw, &book); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if book.Symbol != "ETHUSDT" {
		t.Errorf("symbol = %q", book.Symbol)
	}
	if len(book.Bids) != 1 || book.Bids[0][0] != "3000.1" {
		t.Errorf("bids = %v", book.Bids)
	}
	if book.Ts != 1700000000789 {
		t.Errorf("ts = %d", book.Ts)
	}
}

func TestTickersResultDecode(t *testing.T) {
	raw := []byte(`{"category":"spot","list":[{"symbol":"ETHUSDT","volume24h":"42.5","lastPrice":"3000"}]}`)

	var tickers tickersResult
	if err := json.Unmarshal(raw, &tickers); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(tickers.List) != 1 || tickers.List[0].Volume24h != "42.5" {
		t.Errorf("tickers = %+v", tickers.List)
	}
}
