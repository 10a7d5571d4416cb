package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/logger"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/pagination"
)

// zakatToleranceCents is the accepted rounding slack when validating a
// caller-supplied zakat amount against 2.5% of zakatable wealth.
const zakatToleranceCents = 1

// hawlEvent drives the record state machine.
type hawlEvent string

const (
	eventInterrupt hawlEvent = "interrupt"
	eventFinalize  hawlEvent = "finalize"
	eventUnlock    hawlEvent = "unlock"
	eventEdit      hawlEvent = "edit"
)

// hawlTransitions maps (current status, event) to the next status. A pair
// absent from the table is structurally invalid, so business code never
// compares status strings inline.
var hawlTransitions = map[models.RecordStatus]map[hawlEvent]models.RecordStatus{
	models.RecordStatusDraft: {
		eventInterrupt: models.RecordStatusInterrupted,
		eventFinalize:  models.RecordStatusFinalized,
	},
	models.RecordStatusFinalized: {
		eventUnlock: models.RecordStatusUnlocked,
	},
	models.RecordStatusUnlocked: {
		eventEdit:     models.RecordStatusUnlocked,
		eventFinalize: models.RecordStatusFinalized,
	},
}

// nextStatus resolves the transition table.
func nextStatus(current models.RecordStatus, event hawlEvent) (models.RecordStatus, bool) {
	next, ok := hawlTransitions[current][event]
	return next, ok
}

// hawlService owns the Nisab-Year record lifecycle.
type hawlService struct {
	db     *gorm.DB
	wealth WealthAggregator
	nisab  NisabServicer
	audit  AuditRecorder
}

// NewHawlService creates a new HawlServicer.
func NewHawlService(db *gorm.DB, wealth WealthAggregator, nisab NisabServicer, audit AuditRecorder) HawlServicer {
	return &hawlService{db: db, wealth: wealth, nisab: nisab, audit: audit}
}

// EvaluateHawl aggregates the user's current wealth and advances their Hawl
// state. Safe to call on every read and on every asset mutation.
func (s *hawlService) EvaluateHawl(ctx context.Context, userID string) (*HawlStatus, error) {
	summary, err := s.wealth.AggregateForUser(userID)
	if err != nil {
		return nil, err
	}

	status := &HawlStatus{
		TotalWealth:     summary.TotalWealth,
		ZakatableWealth: summary.ZakatableWealth,
	}

	draft, err := s.findActiveDraft(userID)
	if err != nil {
		return nil, err
	}

	if draft != nil {
		if summary.ZakatableWealth < draft.NisabThresholdAtStart {
			interrupted, err := s.interrupt(draft, summary)
			if err != nil {
				return nil, err
			}
			status.Record = interrupted
			return status, nil
		}

		refreshed, err := s.refreshDraft(draft, summary)
		if err != nil {
			return nil, err
		}
		status.Record = refreshed
		status.DaysRemaining = daysRemaining(refreshed)
		return status, nil
	}

	// No active Hawl: a fresh threshold decides whether one starts now.
	threshold, err := s.nisab.ResolveThreshold(ctx)
	if err != nil {
		return nil, err
	}
	status.Threshold = threshold

	if summary.ZakatableWealth < threshold.Amount {
		return status, nil
	}

	created, err := s.openDraft(userID, summary, threshold)
	if err != nil {
		return nil, err
	}
	status.Record = created
	status.DaysRemaining = daysRemaining(created)
	return status, nil
}

// findActiveDraft returns the user's single non-terminal DRAFT record, or
// nil when none exists. Uniqueness is backed by a partial index on
// (user_id) WHERE status = 'draft'.
func (s *hawlService) findActiveDraft(userID string) (*models.NisabYearRecord, error) {
	var record models.NisabYearRecord
	err := s.db.Where("user_id = ? AND status = ?", userID, models.RecordStatusDraft).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &record, nil
}

// openDraft starts a new Hawl: the threshold is locked once, the completion
// date is exactly 354 days out, and the CREATED audit entry commits with the
// record.
func (s *hawlService) openDraft(userID string, summary WealthSummary, threshold *Threshold) (*models.NisabYearRecord, error) {
	now := time.Now().UTC()
	completion := now.AddDate(0, 0, models.HawlDays)

	record := &models.NisabYearRecord{
		UserID:                userID,
		Status:                models.RecordStatusDraft,
		HawlStartDate:         now,
		HawlCompletionDate:    &completion,
		NisabBasis:            threshold.Basis,
		NisabThresholdAtStart: threshold.Amount,
		TotalWealth:           summary.TotalWealth,
		ZakatableWealth:       summary.ZakatableWealth,
		ZakatAmount:           models.ExpectedZakat(summary.ZakatableWealth),
		Currency:              threshold.Currency,
		Version:               1,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Re-check inside the transaction; a concurrent evaluation may have
		// opened a draft since our read.
		var count int64
		if err := tx.Model(&models.NisabYearRecord{}).
			Where("user_id = ? AND status = ?", userID, models.RecordStatusDraft).
			Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrDraftExists
		}

		if err := tx.Create(record).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		_, err := s.audit.Record(tx, userID, record.ID, models.AuditEventCreated, AuditContext{
			ChangesSummary: fmt.Sprintf("Hawl started: zakatable wealth %d reached %s nisab threshold %d",
				summary.ZakatableWealth, record.NisabBasis, record.NisabThresholdAtStart),
			AfterState: record,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("hawl started",
		"user_id", userID,
		"record_id", record.ID,
		"basis", record.NisabBasis,
		"threshold", record.NisabThresholdAtStart,
	)
	return record, nil
}

// refreshDraft updates a DRAFT's wealth figures from the latest aggregate.
// Not a lifecycle transition, so no audit entry is written.
func (s *hawlService) refreshDraft(record *models.NisabYearRecord, summary WealthSummary) (*models.NisabYearRecord, error) {
	if record.TotalWealth == summary.TotalWealth && record.ZakatableWealth == summary.ZakatableWealth {
		return record, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.commitVersioned(tx, record, map[string]any{
			"total_wealth":     summary.TotalWealth,
			"zakatable_wealth": summary.ZakatableWealth,
			"zakat_amount":     models.ExpectedZakat(summary.ZakatableWealth),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(record.ID)
}

// interrupt terminates a DRAFT whose zakatable wealth dropped below the
// locked threshold. The completion date is cleared and the Hawl can never
// resume; a later rise in wealth starts a fresh record.
func (s *hawlService) interrupt(record *models.NisabYearRecord, summary WealthSummary) (*models.NisabYearRecord, error) {
	next, ok := nextStatus(record.Status, eventInterrupt)
	if !ok {
		return nil, apperrors.ErrInvalidTransition
	}

	before := *record
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commitVersioned(tx, record, map[string]any{
			"status":               next,
			"hawl_completion_date": nil,
			"total_wealth":         summary.TotalWealth,
			"zakatable_wealth":     summary.ZakatableWealth,
			"zakat_amount":         int64(0),
		}); err != nil {
			return err
		}

		after := before
		after.Status = next
		after.HawlCompletionDate = nil
		after.TotalWealth = summary.TotalWealth
		after.ZakatableWealth = summary.ZakatableWealth
		after.ZakatAmount = 0

		_, err := s.audit.Record(tx, record.UserID, record.ID, models.AuditEventInterrupted, AuditContext{
			ChangesSummary: fmt.Sprintf("wealth dropped below Nisab: zakatable wealth %d fell under locked threshold %d",
				summary.ZakatableWealth, record.NisabThresholdAtStart),
			BeforeState: &before,
			AfterState:  &after,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("hawl interrupted",
		"user_id", record.UserID,
		"record_id", record.ID,
		"zakatable_wealth", summary.ZakatableWealth,
		"threshold", record.NisabThresholdAtStart,
	)
	return s.reload(record.ID)
}

// FinalizeRecord closes a Hawl. From DRAFT it requires the 354-day window to
// have elapsed (unless overridden) and recomputes the final figures from
// current assets. From UNLOCKED it re-freezes the edited figures after
// validating their consistency.
func (s *hawlService) FinalizeRecord(ctx context.Context, userID, recordID string, overrideEarly bool) (*models.NisabYearRecord, error) {
	record, err := s.GetRecordByID(userID, recordID)
	if err != nil {
		return nil, err
	}

	next, ok := nextStatus(record.Status, eventFinalize)
	if !ok {
		if record.Status == models.RecordStatusFinalized {
			return nil, apperrors.ErrAlreadyFinalized
		}
		return nil, apperrors.ErrInvalidTransition
	}

	event := models.AuditEventFinalized
	updates := map[string]any{"status": next}

	switch record.Status {
	case models.RecordStatusDraft:
		if record.HawlCompletionDate == nil {
			return nil, apperrors.ErrInvalidTransition
		}
		if !overrideEarly && time.Now().UTC().Before(*record.HawlCompletionDate) {
			return nil, apperrors.ErrHawlNotComplete
		}
		summary, err := s.wealth.AggregateForUser(userID)
		if err != nil {
			return nil, err
		}
		updates["total_wealth"] = summary.TotalWealth
		updates["zakatable_wealth"] = summary.ZakatableWealth
		updates["zakat_amount"] = models.ExpectedZakat(summary.ZakatableWealth)

	case models.RecordStatusUnlocked:
		event = models.AuditEventRefinalized
		if !zakatConsistent(record.ZakatableWealth, record.ZakatAmount) {
			return nil, apperrors.ErrInconsistentZakat
		}
	}

	before := *record
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commitVersioned(tx, record, updates); err != nil {
			return err
		}
		after, err := s.reloadTx(tx, record.ID)
		if err != nil {
			return err
		}
		_, err = s.audit.Record(tx, userID, record.ID, event, AuditContext{
			BeforeState: &before,
			AfterState:  after,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.reload(record.ID)
}

// UnlockRecord makes a FINALIZED record editable again. The reason is
// validated before anything is written, then stored encrypted on the
// UNLOCKED audit entry.
func (s *hawlService) UnlockRecord(ctx context.Context, userID, recordID, reason string) (*models.NisabYearRecord, error) {
	if len(strings.TrimSpace(reason)) < minUnlockReasonLen {
		return nil, apperrors.ErrReasonTooShort
	}

	record, err := s.GetRecordByID(userID, recordID)
	if err != nil {
		return nil, err
	}

	next, ok := nextStatus(record.Status, eventUnlock)
	if !ok {
		return nil, apperrors.ErrInvalidTransition
	}

	before := *record
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commitVersioned(tx, record, map[string]any{"status": next}); err != nil {
			return err
		}
		after, err := s.reloadTx(tx, record.ID)
		if err != nil {
			return err
		}
		_, err = s.audit.Record(tx, userID, record.ID, models.AuditEventUnlocked, AuditContext{
			UnlockReason: reason,
			BeforeState:  &before,
			AfterState:   after,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("record unlocked", "user_id", userID, "record_id", recordID)
	return s.reload(record.ID)
}

// EditRecord applies a field patch to an UNLOCKED record. Each committed
// edit writes an EDITED entry carrying a field-level diff and snapshots.
func (s *hawlService) EditRecord(ctx context.Context, userID, recordID string, patch RecordPatch) (*models.NisabYearRecord, error) {
	record, err := s.GetRecordByID(userID, recordID)
	if err != nil {
		return nil, err
	}

	if _, ok := nextStatus(record.Status, eventEdit); !ok {
		if record.Status == models.RecordStatusFinalized {
			return nil, apperrors.ErrRecordNotEditable
		}
		return nil, apperrors.ErrInvalidTransition
	}

	updates, diff, err := buildRecordPatch(record, patch)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return record, nil
	}

	before := *record
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commitVersioned(tx, record, updates); err != nil {
			return err
		}
		after, err := s.reloadTx(tx, record.ID)
		if err != nil {
			return err
		}
		_, err = s.audit.Record(tx, userID, record.ID, models.AuditEventEdited, AuditContext{
			ChangesSummary: strings.Join(diff, "; "),
			BeforeState:    &before,
			AfterState:     after,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.reload(record.ID)
}

// buildRecordPatch turns a RecordPatch into column updates plus a
// human-readable field diff, enforcing the exact-percentage invariant. A
// patch that changes zakatable wealth without supplying a zakat amount gets
// one recomputed; a supplied amount must match within tolerance.
func buildRecordPatch(record *models.NisabYearRecord, patch RecordPatch) (map[string]any, []string, error) {
	updates := make(map[string]any)
	var diff []string

	if patch.TotalWealth != nil && *patch.TotalWealth != record.TotalWealth {
		updates["total_wealth"] = *patch.TotalWealth
		diff = append(diff, fmt.Sprintf("total_wealth: %d -> %d", record.TotalWealth, *patch.TotalWealth))
	}

	zakatable := record.ZakatableWealth
	if patch.ZakatableWealth != nil && *patch.ZakatableWealth != record.ZakatableWealth {
		zakatable = *patch.ZakatableWealth
		updates["zakatable_wealth"] = zakatable
		diff = append(diff, fmt.Sprintf("zakatable_wealth: %d -> %d", record.ZakatableWealth, zakatable))
	}

	switch {
	case patch.ZakatAmount != nil:
		if !zakatConsistent(zakatable, *patch.ZakatAmount) {
			return nil, nil, apperrors.ErrInconsistentZakat
		}
		if *patch.ZakatAmount != record.ZakatAmount {
			updates["zakat_amount"] = *patch.ZakatAmount
			diff = append(diff, fmt.Sprintf("zakat_amount: %d -> %d", record.ZakatAmount, *patch.ZakatAmount))
		}
	case zakatable != record.ZakatableWealth:
		expected := models.ExpectedZakat(zakatable)
		updates["zakat_amount"] = expected
		diff = append(diff, fmt.Sprintf("zakat_amount: %d -> %d", record.ZakatAmount, expected))
	}

	if patch.UserNotes != nil && *patch.UserNotes != record.UserNotes {
		updates["user_notes"] = *patch.UserNotes
		diff = append(diff, "user_notes: updated")
	}

	return updates, diff, nil
}

// zakatConsistent checks amount against 2.5% of zakatable wealth within the
// rounding tolerance.
func zakatConsistent(zakatableWealth, amount int64) bool {
	expected := models.ExpectedZakat(zakatableWealth)
	delta := amount - expected
	if delta < 0 {
		delta = -delta
	}
	return delta <= zakatToleranceCents
}

// GetRecordByID returns a record scoped to its owner.
func (s *hawlService) GetRecordByID(userID, recordID string) (*models.NisabYearRecord, error) {
	var record models.NisabYearRecord
	if err := s.db.Where("id = ? AND user_id = ?", recordID, userID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &record, nil
}

// GetUserRecords returns the user's records, newest Hawl first.
func (s *hawlService) GetUserRecords(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.NisabYearRecord], error) {
	page.Defaults()

	base := s.db.Model(&models.NisabYearRecord{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var records []models.NisabYearRecord
	if err := base.Order("hawl_start_date DESC").Scopes(pagination.Paginate(page)).Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(records, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// commitVersioned applies updates guarded by the record's version so
// concurrent transitions on the same record serialize: the loser of the race
// matches zero rows and gets a CONFLICT to retry.
func (s *hawlService) commitVersioned(tx *gorm.DB, record *models.NisabYearRecord, updates map[string]any) error {
	updates["version"] = record.Version + 1
	res := tx.Model(&models.NisabYearRecord{}).
		Where("id = ? AND version = ?", record.ID, record.Version).
		Updates(updates)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (s *hawlService) reload(recordID string) (*models.NisabYearRecord, error) {
	return s.reloadTx(s.db, recordID)
}

func (s *hawlService) reloadTx(tx *gorm.DB, recordID string) (*models.NisabYearRecord, error) {
	var record models.NisabYearRecord
	if err := tx.First(&record, "id = ?", recordID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &record, nil
}

// daysRemaining counts whole days until the Hawl completes, never negative.
func daysRemaining(record *models.NisabYearRecord) int {
	if record.HawlCompletionDate == nil || record.Status != models.RecordStatusDraft {
		return 0
	}
	days := int(time.Until(*record.HawlCompletionDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
