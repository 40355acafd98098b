package exchange

import (
	"context"
	"fmt"
)

// DefaultMEXCURL is the production MEXC contract API base URL.
const DefaultMEXCURL = "https://contract.mexc.com"

// MEXCClient fetches perpetual contract listings from MEXC.
type MEXCClient struct {
	*Client
}

// NewMEXCClient creates a MEXC contract API client.
func NewMEXCClient(opts ...ClientOption) *MEXCClient {
	return &MEXCClient{Client: newClient("mexc", DefaultMEXCURL, opts...)}
}

// ContractDetail fetches all contracts currently listed on MEXC.
func (c *MEXCClient) ContractDetail(ctx context.Context) ([]contractDetail, error) {
	var resp contractDetailResponse
	if err := c.get(ctx, "/api/v1/contract/detail", nil, &resp); err != nil {
		return nil, fmt.Errorf("get contract detail: %w", err)
	}

	// The envelope parsed but reports failure or carries no contracts at
	// all: the response shape has drifted, never a valid empty market.
	if !resp.Success || len(resp.Data) == 0 {
		return nil, &FetchError{
			Kind:     FetchSchemaMismatch,
			Exchange: "mexc",
			Err:      fmt.Errorf("contract detail envelope: success=%v code=%d contracts=%d", resp.Success, resp.Code, len(resp.Data)),
		}
	}

	return resp.Data, nil
}
