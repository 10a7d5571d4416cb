package models

import "time"

// AssetCategory represents the category of a tracked asset.
type AssetCategory string

const (
	AssetCategoryCash     AssetCategory = "cash"
	AssetCategoryGold     AssetCategory = "gold"
	AssetCategorySilver   AssetCategory = "silver"
	AssetCategoryBusiness AssetCategory = "business"
	AssetCategoryProperty AssetCategory = "property"
	AssetCategoryStocks   AssetCategory = "stocks"
	AssetCategoryCrypto   AssetCategory = "crypto"
	AssetCategoryDebts    AssetCategory = "debts"
	AssetCategoryExpenses AssetCategory = "expenses"
)

// Valid reports whether the category is a known asset category.
func (c AssetCategory) Valid() bool {
	switch c {
	case AssetCategoryCash, AssetCategoryGold, AssetCategorySilver,
		AssetCategoryBusiness, AssetCategoryProperty, AssetCategoryStocks,
		AssetCategoryCrypto, AssetCategoryDebts, AssetCategoryExpenses:
		return true
	}
	return false
}

// DefaultPassiveModifier is the portion of a passive investment fund treated
// as zakatable when the owner does not specify one.
const DefaultPassiveModifier = 0.3

// Asset represents a single wealth item tracked by a user. Values are stored
// in cents.
type Asset struct {
	Base
	UserID              string        `gorm:"type:uuid;not null;index" json:"user_id"`
	Name                string        `gorm:"not null" json:"name"`
	Category            AssetCategory `gorm:"not null" json:"category"`
	Value               int64         `gorm:"type:bigint;not null" json:"value"`
	Currency            string        `gorm:"not null;default:'USD'" json:"currency"`
	AcquisitionDate     time.Time     `json:"acquisition_date"`
	ZakatEligible       bool          `gorm:"default:true" json:"zakat_eligible"`
	IsPassiveInvestment bool          `gorm:"default:false" json:"is_passive_investment"`

	// CalculationModifier is the fraction of the asset's value counted as
	// zakatable, in [0, 1]. Defaults to 1.0, or DefaultPassiveModifier for
	// passive investments.
	CalculationModifier float64 `gorm:"not null;default:1.0" json:"calculation_modifier"`
}

// ZakatableValue returns the portion of the asset's value that counts toward
// zakatable wealth. Non-eligible assets contribute nothing regardless of
// their modifier.
func (a *Asset) ZakatableValue() int64 {
	if !a.ZakatEligible {
		return 0
	}
	return int64(float64(a.Value)*a.CalculationModifier + 0.5)
}
