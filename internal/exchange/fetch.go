package exchange

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rmoroz/mexc-tracker/internal/model"
)

// Fetcher performs one logical fetch: both exchange calls merged into a
// normalized snapshot of the perpetuals unique to MEXC. It never touches
// persistent storage.
type Fetcher struct {
	mexc    *MEXCClient
	binance *BinanceClient
	logger  *slog.Logger
	now     func() time.Time
}

// NewFetcher creates a Fetcher over the two exchange clients.
func NewFetcher(mexc *MEXCClient, binance *BinanceClient, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		mexc:    mexc,
		binance: binance,
		logger:  logger,
		now:     time.Now,
	}
}

// Fetch runs one poll cycle's external calls and returns the unique-futures
// snapshot. Failures carry the *FetchError taxonomy.
func (f *Fetcher) Fetch(ctx context.Context) (model.Snapshot, error) {
	contracts, err := f.mexc.ContractDetail(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	tracked := make(map[string]contractDetail)
	for _, c := range contracts {
		// Only USDT-margined perpetuals, matching the tracked universe.
		if c.Symbol == "" || !strings.HasSuffix(c.Symbol, "_USDT") {
			continue
		}
		tracked[c.Symbol] = c
	}
	f.logger.Debug("fetched mexc contracts", "total", len(contracts), "usdt_perpetuals", len(tracked))

	binanceSymbols, err := f.binance.PerpetualSymbols(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	f.logger.Debug("fetched binance perpetuals", "count", len(binanceSymbols))

	onBinance := make(map[string]struct{}, len(binanceSymbols))
	for _, s := range binanceSymbols {
		onBinance[NormalizeSymbol(s)] = struct{}{}
	}

	entries := make(map[string]model.Contract)
	for sym, c := range tracked {
		if _, listed := onBinance[NormalizeSymbol(sym)]; listed {
			continue
		}
		entries[sym] = model.Contract{
			Symbol:      c.Symbol,
			DisplayName: c.DisplayNameEn,
			BaseCoin:    c.BaseCoin,
			QuoteCoin:   c.QuoteCoin,
			State:       c.State,
			MaxLeverage: c.MaxLeverage,
		}
	}

	return model.Snapshot{
		Entries:    entries,
		CapturedAt: f.now().UTC(),
	}, nil
}

// NormalizeSymbol reduces an exchange symbol to a comparable base form:
// uppercase, quote-asset suffix and separators stripped. MEXC "KAVA_USDT"
// and Binance "KAVAUSDT" both normalize to "KAVA".
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	s = strings.ReplaceAll(s, "_USDT", "")
	s = strings.ReplaceAll(s, "USDT", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}
