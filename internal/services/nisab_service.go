package services

import (
	"context"
	"math"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/oracle"
)

// Canonical nisab weights in grams.
const (
	NisabGoldGrams   = 87.48
	NisabSilverGrams = 612.36
)

// BasisPolicy selects how the governing nisab basis is chosen. Schools of
// thought differ here, so the policy is a deployment configuration rather
// than a hard-coded rule.
type BasisPolicy string

const (
	// BasisPolicyGold always uses the gold-equivalent threshold.
	BasisPolicyGold BasisPolicy = "gold"
	// BasisPolicySilver always uses the silver-equivalent threshold.
	BasisPolicySilver BasisPolicy = "silver"
	// BasisPolicyLower uses whichever threshold is lower, which brings
	// liability in earlier.
	BasisPolicyLower BasisPolicy = "lower"
)

// nisabService resolves the nisab threshold from live metal prices.
type nisabService struct {
	provider oracle.PriceProvider
	policy   BasisPolicy
	currency string
}

// NewNisabService creates a new NisabServicer with the given basis policy.
// An unrecognized policy falls back to BasisPolicyLower.
func NewNisabService(provider oracle.PriceProvider, policy BasisPolicy, currency string) NisabServicer {
	switch policy {
	case BasisPolicyGold, BasisPolicySilver, BasisPolicyLower:
	default:
		policy = BasisPolicyLower
	}
	return &nisabService{provider: provider, policy: policy, currency: currency}
}

// ResolveThreshold fetches current gram prices for gold and silver and
// returns the governing threshold under the configured policy. A missing
// price aborts with PRICE_UNAVAILABLE; the resolver never substitutes a
// stale or default quote.
func (s *nisabService) ResolveThreshold(ctx context.Context) (*Threshold, error) {
	goldPrice, err := s.provider.GramPrice(ctx, oracle.MetalGold, s.currency)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPriceUnavailable, err)
	}
	silverPrice, err := s.provider.GramPrice(ctx, oracle.MetalSilver, s.currency)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPriceUnavailable, err)
	}

	goldThreshold := gramsToCents(NisabGoldGrams, goldPrice)
	silverThreshold := gramsToCents(NisabSilverGrams, silverPrice)

	t := &Threshold{
		GoldGramPrice:   goldPrice,
		SilverGramPrice: silverPrice,
		GoldThreshold:   goldThreshold,
		SilverThreshold: silverThreshold,
		Currency:        s.currency,
	}

	switch s.policy {
	case BasisPolicyGold:
		t.Basis, t.Amount = models.NisabBasisGold, goldThreshold
	case BasisPolicySilver:
		t.Basis, t.Amount = models.NisabBasisSilver, silverThreshold
	default:
		if silverThreshold <= goldThreshold {
			t.Basis, t.Amount = models.NisabBasisSilver, silverThreshold
		} else {
			t.Basis, t.Amount = models.NisabBasisGold, goldThreshold
		}
	}

	return t, nil
}

// gramsToCents multiplies a gram weight by a per-gram price in cents,
// rounding half up.
func gramsToCents(grams float64, pricePerGram int64) int64 {
	return int64(math.Round(grams * float64(pricePerGram)))
}
