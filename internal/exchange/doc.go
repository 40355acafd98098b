// Package exchange implements the fetch side of a poll cycle.
//
// Two REST clients (MEXC contract API, Binance futures API) share a common
// request layer with bounded timeouts and retried transient failures. The
// Fetcher merges both symbol universes into a single normalized snapshot of
// the perpetuals listed on MEXC but absent from Binance.
//
// Endpoints:
//   - MEXC:    https://contract.mexc.com/api/v1/contract/detail
//   - Binance: https://fapi.binance.com/fapi/v1/exchangeInfo
package exchange
