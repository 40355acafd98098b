package exchange

import (
	"context"
	"errors"
	"fmt"
)

// DefaultBinanceURL is the production Binance futures API base URL.
const DefaultBinanceURL = "https://fapi.binance.com"

// BinanceClient fetches the perpetual symbol universe from Binance.
type BinanceClient struct {
	*Client
}

// NewBinanceClient creates a Binance futures API client.
func NewBinanceClient(opts ...ClientOption) *BinanceClient {
	return &BinanceClient{Client: newClient("binance", DefaultBinanceURL, opts...)}
}

// PerpetualSymbols fetches all symbols with contractType PERPETUAL.
func (c *BinanceClient) PerpetualSymbols(ctx context.Context) ([]string, error) {
	var resp exchangeInfoResponse
	if err := c.get(ctx, "/fapi/v1/exchangeInfo", nil, &resp); err != nil {
		return nil, fmt.Errorf("get exchange info: %w", err)
	}

	if len(resp.Symbols) == 0 {
		return nil, &FetchError{
			Kind:     FetchSchemaMismatch,
			Exchange: "binance",
			Err:      errors.New("exchange info carried no symbols"),
		}
	}

	symbols := make([]string, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.ContractType == "PERPETUAL" && s.Symbol != "" {
			symbols = append(symbols, s.Symbol)
		}
	}

	return symbols, nil
}
