package upstream

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EsploraClient reads the chain tip from a Blockstream-compatible Esplora API.
type EsploraClient struct {
	baseURL string
	opts    clientOptions
}

func NewEsploraClient(baseURL string, timeout time.Duration, opts ...Option) *EsploraClient {
	return &EsploraClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    buildOptions(timeout, opts),
	}
}

// FetchHeight calls GET /blocks/tip/height, which answers with a bare integer.
func (c *EsploraClient) FetchHeight(ctx context.Context) (int64, error) {
	body, err := get(ctx, c.opts, c.baseURL+"/blocks/tip/height")
	if err != nil {
		return 0, fmt.Errorf("esplora: %w", err)
	}

	height, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("esplora: decoding tip height: %w", err)
	}
	if height < 0 {
		return 0, fmt.Errorf("esplora: negative tip height %d", height)
	}
	return height, nil
}

var _ HeightFetcher = (*EsploraClient)(nil)
