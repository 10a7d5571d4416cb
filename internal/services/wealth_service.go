package services

import (
	"gorm.io/gorm"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/models"
)

// wealthService aggregates a user's assets into total and zakatable wealth.
type wealthService struct {
	db *gorm.DB
}

// NewWealthService creates a new WealthAggregator.
func NewWealthService(db *gorm.DB) WealthAggregator {
	return &wealthService{db: db}
}

// Aggregate sums an asset snapshot. Total wealth counts every asset;
// zakatable wealth counts eligible assets scaled by their calculation
// modifier. Pure function of the snapshot, no side effects.
func (s *wealthService) Aggregate(assets []models.Asset) WealthSummary {
	var summary WealthSummary
	for i := range assets {
		summary.TotalWealth += assets[i].Value
		summary.ZakatableWealth += assets[i].ZakatableValue()
	}
	return summary
}

// AggregateForUser loads the user's current assets and aggregates them.
func (s *wealthService) AggregateForUser(userID string) (WealthSummary, error) {
	var assets []models.Asset
	if err := s.db.Where("user_id = ?", userID).Find(&assets).Error; err != nil {
		return WealthSummary{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.Aggregate(assets), nil
}
