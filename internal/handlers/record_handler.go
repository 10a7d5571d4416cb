package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/models"
	"zakatkeeper/internal/pagination"
	"zakatkeeper/internal/services"
)

// RecordHandler handles Nisab-Year record lifecycle requests
type RecordHandler struct {
	hawlService  services.HawlServicer
	auditService services.AuditServicer
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(hawlService services.HawlServicer, auditService services.AuditServicer) *RecordHandler {
	return &RecordHandler{hawlService: hawlService, auditService: auditService}
}

// FinalizeRequest represents the finalize payload
type FinalizeRequest struct {
	OverrideEarly bool `json:"override_early"`
}

// UnlockRequest represents the unlock payload
type UnlockRequest struct {
	Reason string `json:"reason" binding:"required,min=10,max=1000"`
}

// EditRecordRequest represents the patch applied to an unlocked record
type EditRecordRequest struct {
	TotalWealth     *int64  `json:"total_wealth" binding:"omitempty,min=0"`
	ZakatableWealth *int64  `json:"zakatable_wealth" binding:"omitempty,min=0"`
	ZakatAmount     *int64  `json:"zakat_amount" binding:"omitempty,min=0"`
	UserNotes       *string `json:"user_notes" binding:"omitempty,max=5000"`
}

// GetZakatStatus evaluates and returns the user's current Hawl status
// @Summary     Get zakat status
// @Description Aggregate current wealth and advance the Hawl state machine
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.HawlStatus
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Metal prices unavailable"
// @Router      /zakat/status [get]
func (h *RecordHandler) GetZakatStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	status, err := h.hawlService.EvaluateHawl(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetRecords lists the user's Nisab-Year records
// @Summary     List records
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.NisabYearRecord]
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /records [get]
func (h *RecordHandler) GetRecords(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.hawlService.GetUserRecords(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecord returns one record
// @Summary     Get a record
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Success     200 {object} models.NisabYearRecord
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /records/{id} [get]
func (h *RecordHandler) GetRecord(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	record, err := h.hawlService.GetRecordByID(userID, recordID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// FinalizeRecord finalizes a record
// @Summary     Finalize a record
// @Description Close the Hawl and freeze the final figures
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Param       request body FinalizeRequest false "Finalize options"
// @Success     200 {object} models.NisabYearRecord
// @Failure     400 {object} ErrorResponse "Hawl not complete"
// @Failure     409 {object} ErrorResponse "Invalid transition or concurrent modification"
// @Router      /records/{id}/finalize [post]
func (h *RecordHandler) FinalizeRecord(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req FinalizeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	record, err := h.hawlService.FinalizeRecord(c.Request.Context(), userID, recordID, req.OverrideEarly)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// UnlockRecord unlocks a finalized record for editing
// @Summary     Unlock a record
// @Description Reopen a finalized record; the reason is stored encrypted on the audit trail
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Param       request body UnlockRequest true "Unlock reason (min 10 characters)"
// @Success     200 {object} models.NisabYearRecord
// @Failure     400 {object} ErrorResponse "Reason too short"
// @Failure     409 {object} ErrorResponse "Invalid transition"
// @Router      /records/{id}/unlock [post]
func (h *RecordHandler) UnlockRecord(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrReasonTooShort, err.Error()))
		return
	}

	record, err := h.hawlService.UnlockRecord(c.Request.Context(), userID, recordID, req.Reason)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// EditRecord patches an unlocked record
// @Summary     Edit an unlocked record
// @Description Apply a field patch; every committed edit is audited with a diff
// @Tags        records
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Param       request body EditRecordRequest true "Fields to change"
// @Success     200 {object} models.NisabYearRecord
// @Failure     400 {object} ErrorResponse "Inconsistent zakat amount"
// @Failure     409 {object} ErrorResponse "Record not editable"
// @Router      /records/{id} [patch]
func (h *RecordHandler) EditRecord(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req EditRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	record, err := h.hawlService.EditRecord(c.Request.Context(), userID, recordID, services.RecordPatch{
		TotalWealth:     req.TotalWealth,
		ZakatableWealth: req.ZakatableWealth,
		ZakatAmount:     req.ZakatAmount,
		UserNotes:       req.UserNotes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetAuditTrail returns a record's audit trail
// @Summary     Get a record's audit trail
// @Description Chronological lifecycle entries; pass decrypt=true to open server-encrypted context
// @Tags        records
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Record ID"
// @Param       decrypt query bool false "Decrypt server-encrypted context fields"
// @Param       event_type query string false "Filter by event type"
// @Success     200 {array} models.AuditTrailEntry
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /records/{id}/audit-trail [get]
func (h *RecordHandler) GetAuditTrail(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Ownership check before reading the trail.
	if _, err := h.hawlService.GetRecordByID(userID, recordID); err != nil {
		respondWithError(c, err)
		return
	}

	decrypt := c.Query("decrypt") == "true"

	var entries []models.AuditTrailEntry
	if eventType := c.Query("event_type"); eventType != "" {
		entries, err = h.auditService.GetEventsByType(userID, recordID, models.AuditEventType(eventType), decrypt)
	} else {
		entries, err = h.auditService.GetTrail(userID, recordID, decrypt)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
