package services_test

import (
	"context"
	"testing"

	"zakatkeeper/internal/models"
	"zakatkeeper/internal/oracle"
	"zakatkeeper/internal/services"
	"zakatkeeper/internal/testutil"
)

// Per-gram prices in cents chosen so both thresholds are exact:
// gold 7000 * 87.48 = 612360, silver 800 * 612.36 = 489888.
func staticProvider() *oracle.StaticProvider {
	return &oracle.StaticProvider{Prices: map[oracle.Metal]int64{
		oracle.MetalGold:   7000,
		oracle.MetalSilver: 800,
	}}
}

func TestResolveThreshold(t *testing.T) {
	ctx := context.Background()

	t.Run("gold policy", func(t *testing.T) {
		svc := services.NewNisabService(staticProvider(), services.BasisPolicyGold, "USD")
		threshold, err := svc.ResolveThreshold(ctx)
		testutil.AssertNoError(t, err)

		if threshold.Basis != models.NisabBasisGold {
			t.Errorf("expected gold basis, got %s", threshold.Basis)
		}
		if threshold.Amount != 612360 {
			t.Errorf("expected threshold 612360, got %d", threshold.Amount)
		}
	})

	t.Run("silver policy", func(t *testing.T) {
		svc := services.NewNisabService(staticProvider(), services.BasisPolicySilver, "USD")
		threshold, err := svc.ResolveThreshold(ctx)
		testutil.AssertNoError(t, err)

		if threshold.Basis != models.NisabBasisSilver {
			t.Errorf("expected silver basis, got %s", threshold.Basis)
		}
		if threshold.Amount != 489888 {
			t.Errorf("expected threshold 489888, got %d", threshold.Amount)
		}
	})

	t.Run("lower policy picks the cheaper threshold", func(t *testing.T) {
		svc := services.NewNisabService(staticProvider(), services.BasisPolicyLower, "USD")
		threshold, err := svc.ResolveThreshold(ctx)
		testutil.AssertNoError(t, err)

		if threshold.Basis != models.NisabBasisSilver {
			t.Errorf("expected silver basis under lower policy, got %s", threshold.Basis)
		}
		if threshold.Amount != 489888 {
			t.Errorf("expected threshold 489888, got %d", threshold.Amount)
		}
		if threshold.GoldThreshold != 612360 {
			t.Errorf("expected gold threshold 612360, got %d", threshold.GoldThreshold)
		}
	})

	t.Run("lower policy switches to gold when silver is dearer", func(t *testing.T) {
		provider := &oracle.StaticProvider{Prices: map[oracle.Metal]int64{
			oracle.MetalGold:   100,
			oracle.MetalSilver: 5000,
		}}
		svc := services.NewNisabService(provider, services.BasisPolicyLower, "USD")
		threshold, err := svc.ResolveThreshold(ctx)
		testutil.AssertNoError(t, err)

		if threshold.Basis != models.NisabBasisGold {
			t.Errorf("expected gold basis, got %s", threshold.Basis)
		}
	})

	t.Run("unknown policy falls back to lower", func(t *testing.T) {
		svc := services.NewNisabService(staticProvider(), services.BasisPolicy("bogus"), "USD")
		threshold, err := svc.ResolveThreshold(ctx)
		testutil.AssertNoError(t, err)

		if threshold.Basis != models.NisabBasisSilver {
			t.Errorf("expected silver basis, got %s", threshold.Basis)
		}
	})

	t.Run("missing price fails with PRICE_UNAVAILABLE", func(t *testing.T) {
		provider := &oracle.StaticProvider{Prices: map[oracle.Metal]int64{
			oracle.MetalGold: 7000, // no silver quote
		}}
		svc := services.NewNisabService(provider, services.BasisPolicyGold, "USD")
		_, err := svc.ResolveThreshold(ctx)
		testutil.AssertAppError(t, err, "PRICE_UNAVAILABLE")
	})

	t.Run("no provider data at all fails", func(t *testing.T) {
		svc := services.NewNisabService(&oracle.StaticProvider{}, services.BasisPolicyLower, "USD")
		_, err := svc.ResolveThreshold(ctx)
		testutil.AssertAppError(t, err, "PRICE_UNAVAILABLE")
	})
}
