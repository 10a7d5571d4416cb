// Package oracle defines the interface for fetching precious metal prices
// from external data sources.
package oracle

import (
	"context"
	"errors"
)

// Metal identifies a precious metal the nisab threshold can be derived from.
type Metal string

const (
	MetalGold   Metal = "gold"
	MetalSilver Metal = "silver"
)

// ErrPriceUnavailable is returned when a provider cannot supply a current
// price. Callers must treat this as a hard failure and never fall back to a
// stale or default price.
var ErrPriceUnavailable = errors.New("oracle: price unavailable")

// PriceProvider fetches the current price of one gram of a metal.
type PriceProvider interface {
	// Name returns the provider's display name (e.g., "metals.dev").
	Name() string

	// GramPrice returns the current price of one gram of the given metal in
	// cents of the given ISO 4217 currency. Returns ErrPriceUnavailable if
	// the provider cannot supply a fresh quote.
	GramPrice(ctx context.Context, metal Metal, currency string) (int64, error)
}
