package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
)

// metalsDevResponse is the relevant subset of the metals.dev latest-rates
// response. Prices are quoted per troy ounce.
type metalsDevResponse struct {
	Status string `json:"status"`
	Metals struct {
		Gold   float64 `json:"gold"`
		Silver float64 `json:"silver"`
	} `json:"metals"`
}

// gramsPerTroyOunce converts the API's per-ounce quotes to per-gram prices.
const gramsPerTroyOunce = 31.1034768

// MetalsDevProvider fetches spot prices from the metals.dev API.
type MetalsDevProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	apiKey     string
}

// NewMetalsDevProvider creates a new metals.dev price provider.
func NewMetalsDevProvider(httpClient *http.Client, baseURL, apiKey string) *MetalsDevProvider {
	return &MetalsDevProvider{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey}
}

// Name returns the provider's display name.
func (p *MetalsDevProvider) Name() string { return "metals.dev" }

// GramPrice fetches the current per-gram price of the given metal in cents.
func (p *MetalsDevProvider) GramPrice(ctx context.Context, metal Metal, currency string) (int64, error) {
	q := url.Values{}
	q.Set("api_key", p.apiKey)
	q.Set("currency", currency)
	q.Set("unit", "toz")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: unexpected status %d", ErrPriceUnavailable, resp.StatusCode)
	}

	var body metalsDevResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if body.Status != "success" {
		return 0, fmt.Errorf("%w: provider status %q", ErrPriceUnavailable, body.Status)
	}

	var perOunce float64
	switch metal {
	case MetalGold:
		perOunce = body.Metals.Gold
	case MetalSilver:
		perOunce = body.Metals.Silver
	default:
		return 0, fmt.Errorf("%w: unknown metal %q", ErrPriceUnavailable, metal)
	}
	if perOunce <= 0 {
		return 0, fmt.Errorf("%w: no quote for %s", ErrPriceUnavailable, metal)
	}

	cents := math.Round(perOunce / gramsPerTroyOunce * 100)
	return int64(cents), nil
}
