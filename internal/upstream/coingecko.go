package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrPriceMissing = errors.New("price missing from response")

// CoinGeckoClient reads the BTC/USD spot price from the CoinGecko simple price API.
type CoinGeckoClient struct {
	baseURL string
	opts    clientOptions
}

func NewCoinGeckoClient(baseURL string, timeout time.Duration, opts ...Option) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    buildOptions(timeout, opts),
	}
}

func (c *CoinGeckoClient) FetchPrice(ctx context.Context) (float64, error) {
	body, err := get(ctx, c.opts, c.baseURL+"/simple/price?ids=bitcoin&vs_currencies=usd")
	if err != nil {
		return 0, fmt.Errorf("coingecko: %w", err)
	}

	var response struct {
		Bitcoin *struct {
			USD *float64 `json:"usd"`
		} `json:"bitcoin"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("coingecko: error decoding response: %w", err)
	}

	if response.Bitcoin == nil || response.Bitcoin.USD == nil {
		return 0, fmt.Errorf("coingecko: %w", ErrPriceMissing)
	}

	return *response.Bitcoin.USD, nil
}

var _ PriceFetcher = (*CoinGeckoClient)(nil)
