package oracle

import "context"

// StaticProvider serves fixed per-gram prices. Used in tests and local
// development where no API key is configured.
type StaticProvider struct {
	// Prices maps metal to a per-gram price in cents. A missing or
	// non-positive entry yields ErrPriceUnavailable.
	Prices map[Metal]int64
}

// Name returns the provider's display name.
func (p *StaticProvider) Name() string { return "static" }

// GramPrice returns the configured price for the metal.
func (p *StaticProvider) GramPrice(_ context.Context, metal Metal, _ string) (int64, error) {
	price, ok := p.Prices[metal]
	if !ok || price <= 0 {
		return 0, ErrPriceUnavailable
	}
	return price, nil
}
