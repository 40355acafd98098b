package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const mexcDetailJSON = `{
	"success": true,
	"code": 0,
	"data": [
		{"symbol": "BTC_USDT", "displayNameEn": "BTC_USDT PERPETUAL", "baseCoin": "BTC", "quoteCoin": "USDT", "state": 0, "maxLeverage": 125},
		{"symbol": "KAVA_USDT", "displayNameEn": "KAVA_USDT PERPETUAL", "baseCoin": "KAVA", "quoteCoin": "USDT", "state": 0, "maxLeverage": 50},
		{"symbol": "OBSCURE_USDT", "displayNameEn": "OBSCURE_USDT PERPETUAL", "baseCoin": "OBSCURE", "quoteCoin": "USDT", "state": 0, "maxLeverage": 20},
		{"symbol": "BTC_USD", "displayNameEn": "BTC_USD COIN-M", "baseCoin": "BTC", "quoteCoin": "USD", "state": 0, "maxLeverage": 125}
	]
}`

const binanceInfoJSON = `{
	"symbols": [
		{"symbol": "BTCUSDT", "contractType": "PERPETUAL", "status": "TRADING"},
		{"symbol": "KAVAUSDT", "contractType": "PERPETUAL", "status": "TRADING"},
		{"symbol": "ETHUSDT_250926", "contractType": "CURRENT_QUARTER", "status": "TRADING"}
	]
}`

func newTestFetcher(t *testing.T, mexcBody, binanceBody string) *Fetcher {
	t.Helper()

	mexcSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/contract/detail" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(mexcBody))
	}))
	t.Cleanup(mexcSrv.Close)

	binanceSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/exchangeInfo" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(binanceBody))
	}))
	t.Cleanup(binanceSrv.Close)

	mexc := NewMEXCClient(WithBaseURL(mexcSrv.URL), WithTimeout(5*time.Second))
	binance := NewBinanceClient(WithBaseURL(binanceSrv.URL), WithTimeout(5*time.Second))
	return NewFetcher(mexc, binance, nil)
}

func TestFetch_UniqueFutures(t *testing.T) {
	f := newTestFetcher(t, mexcDetailJSON, binanceInfoJSON)

	snap, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// BTC and KAVA are on both exchanges; BTC_USD is not USDT-margined.
	if snap.Len() != 1 {
		t.Fatalf("snapshot has %d entries %v, want 1", snap.Len(), snap.Symbols())
	}

	c, ok := snap.Entries["OBSCURE_USDT"]
	if !ok {
		t.Fatal("OBSCURE_USDT missing from snapshot")
	}
	if c.BaseCoin != "OBSCURE" || c.MaxLeverage != 20 {
		t.Errorf("contract = %+v", c)
	}
	if snap.CapturedAt.IsZero() {
		t.Error("CapturedAt is zero")
	}
}

func TestFetch_MEXCSchemaDrift(t *testing.T) {
	f := newTestFetcher(t, `{"success": false, "code": 510}`, binanceInfoJSON)

	_, err := f.Fetch(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.Kind != FetchSchemaMismatch {
		t.Errorf("kind = %s, want %s", fe.Kind, FetchSchemaMismatch)
	}
	if fe.Exchange != "mexc" {
		t.Errorf("exchange = %s, want mexc", fe.Exchange)
	}
}

func TestFetch_BinanceEmptySymbolsIsSchemaDrift(t *testing.T) {
	f := newTestFetcher(t, mexcDetailJSON, `{"symbols": []}`)

	_, err := f.Fetch(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.Kind != FetchSchemaMismatch || fe.Exchange != "binance" {
		t.Errorf("got %s from %s, want schema_mismatch from binance", fe.Kind, fe.Exchange)
	}
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"KAVA_USDT", "KAVA"},
		{"KAVAUSDT", "KAVA"},
		{"kava_usdt", "KAVA"},
		{"1000PEPE_USDT", "1000PEPE"},
		{"BTC-USDT", "BTC"},
		{"BTCUSDT", "BTC"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeSymbol(tt.in); got != tt.want {
				t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
