package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/logger"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/pagination"
)

// assetService handles asset-related business logic. Every mutation
// re-evaluates the owner's Hawl, since crossing the nisab threshold in
// either direction is a lifecycle event.
type assetService struct {
	db   *gorm.DB
	hawl HawlServicer
}

// NewAssetService creates a new AssetServicer.
func NewAssetService(db *gorm.DB, hawl HawlServicer) AssetServicer {
	return &assetService{db: db, hawl: hawl}
}

// CreateAsset creates a new asset for a user.
func (s *assetService) CreateAsset(ctx context.Context, userID string, input AssetInput) (*models.Asset, error) {
	if err := validateAssetInput(input); err != nil {
		return nil, err
	}

	if input.Currency == "" {
		input.Currency = "USD"
	}
	if input.AcquisitionDate.IsZero() {
		input.AcquisitionDate = time.Now().UTC()
	}

	asset := &models.Asset{
		UserID:              userID,
		Name:                input.Name,
		Category:            input.Category,
		Value:               input.Value,
		Currency:            input.Currency,
		AcquisitionDate:     input.AcquisitionDate,
		ZakatEligible:       true,
		IsPassiveInvestment: input.IsPassiveInvestment,
		CalculationModifier: resolveModifier(input),
	}
	if input.ZakatEligible != nil {
		asset.ZakatEligible = *input.ZakatEligible
	}

	if err := s.db.Create(asset).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.reevaluate(ctx, userID)
	return asset, nil
}

// GetUserAssets retrieves a paginated list of the user's assets.
func (s *assetService) GetUserAssets(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error) {
	page.Defaults()

	base := s.db.Model(&models.Asset{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var assets []models.Asset
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(assets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAssetByID retrieves an asset by ID for a specific user.
func (s *assetService) GetAssetByID(userID, assetID string) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.Where("id = ? AND user_id = ?", assetID, userID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &asset, nil
}

// UpdateAsset replaces the mutable fields of an existing asset.
func (s *assetService) UpdateAsset(ctx context.Context, userID, assetID string, input AssetInput) (*models.Asset, error) {
	if err := validateAssetInput(input); err != nil {
		return nil, err
	}

	asset, err := s.GetAssetByID(userID, assetID)
	if err != nil {
		return nil, err
	}

	zakatEligible := asset.ZakatEligible
	if input.ZakatEligible != nil {
		zakatEligible = *input.ZakatEligible
	}
	if input.Currency == "" {
		input.Currency = asset.Currency
	}
	if input.AcquisitionDate.IsZero() {
		input.AcquisitionDate = asset.AcquisitionDate
	}

	updates := map[string]any{
		"name":                  input.Name,
		"category":              input.Category,
		"value":                 input.Value,
		"currency":              input.Currency,
		"acquisition_date":      input.AcquisitionDate,
		"zakat_eligible":        zakatEligible,
		"is_passive_investment": input.IsPassiveInvestment,
		"calculation_modifier":  resolveModifier(input),
	}
	if err := s.db.Model(asset).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.reevaluate(ctx, userID)
	return s.GetAssetByID(userID, assetID)
}

// DeleteAsset removes an asset permanently.
func (s *assetService) DeleteAsset(ctx context.Context, userID, assetID string) error {
	asset, err := s.GetAssetByID(userID, assetID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(asset).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.reevaluate(ctx, userID)
	return nil
}

// ListEligibleAssets returns every zakat-eligible asset the user holds.
func (s *assetService) ListEligibleAssets(userID string) ([]models.Asset, error) {
	var assets []models.Asset
	if err := s.db.Where("user_id = ? AND zakat_eligible = ?", userID, true).Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return assets, nil
}

// reevaluate advances the owner's Hawl after a wealth change. Evaluation
// failure (say, the price oracle is down) must not roll back the asset
// mutation, so errors are logged and swallowed here; the next evaluation
// picks the state change up.
func (s *assetService) reevaluate(ctx context.Context, userID string) {
	if _, err := s.hawl.EvaluateHawl(ctx, userID); err != nil {
		logger.Get().Warnw("hawl re-evaluation after asset mutation failed", "user_id", userID, "error", err)
	}
}

func validateAssetInput(input AssetInput) error {
	if input.Name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "asset name is required")
	}
	if input.Value < 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "asset value cannot be negative")
	}
	if !input.Category.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid asset category")
	}
	if input.CalculationModifier != nil && (*input.CalculationModifier < 0 || *input.CalculationModifier > 1) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "calculation modifier must be between 0 and 1")
	}
	return nil
}

// resolveModifier applies the defaulting rule for the zakatable fraction: an
// explicit modifier wins, passive investments default to the conventional
// 30%, everything else counts in full.
func resolveModifier(input AssetInput) float64 {
	if input.CalculationModifier != nil {
		return *input.CalculationModifier
	}
	if input.IsPassiveInvestment {
		return models.DefaultPassiveModifier
	}
	return 1.0
}
