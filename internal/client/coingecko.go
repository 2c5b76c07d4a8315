package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	coingeckoAPI = "https://api.coingecko.com/api/v3"
)

// CoinGeckoClient client for CoinGecko API. It serves as the injected
// price oracle for the harvest profitability gate and balance display.
type CoinGeckoClient struct {
	baseURL string
	coinID  string
	client  *http.Client
}

// NewCoinGeckoClient creates a new CoinGecko client for the given coin id
// (e.g. "matic-network" for Polygon gas pricing).
func NewCoinGeckoClient(coinID string) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL: coingeckoAPI,
		coinID:  coinID,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NativeTokenUSD gets the USD price of the native token.
func (c *CoinGeckoClient) NativeTokenUSD(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, c.coinID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to get price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to get price: status %d", resp.StatusCode)
	}

	var priceResp map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		return 0, fmt.Errorf("failed to decode price: %w", err)
	}

	entry, ok := priceResp[c.coinID]
	if !ok || entry.USD <= 0 {
		return 0, fmt.Errorf("no USD price for %s", c.coinID)
	}
	return entry.USD, nil
}
