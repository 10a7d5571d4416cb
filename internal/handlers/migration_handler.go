package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "zakatkeeper/internal/errors"
	"zakatkeeper/internal/services"
)

// MigrationHandler handles encryption migration requests
type MigrationHandler struct {
	migrationService services.MigrationServicer
}

// NewMigrationHandler creates a new MigrationHandler
func NewMigrationHandler(migrationService services.MigrationServicer) *MigrationHandler {
	return &MigrationHandler{migrationService: migrationService}
}

// ReplacementsRequest represents a batch of client-encrypted field values
type ReplacementsRequest struct {
	Replacements []services.OpaqueReplacement `json:"replacements" binding:"required,min=1,dive"`
}

// GetStatus returns the user's encryption migration state
// @Summary     Get migration status
// @Tags        encryption
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.EncryptionMigration
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /encryption/migration [get]
func (h *MigrationHandler) GetStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	status, err := h.migrationService.GetStatus(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ListMigratableFields lists field values still under the server key
// @Summary     List migratable fields
// @Description Field references the client may re-encrypt with its own key
// @Tags        encryption
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} services.MigratableField
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /encryption/migration/fields [get]
func (h *MigrationHandler) ListMigratableFields(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	fields, err := h.migrationService.ListMigratableFields(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

// SubmitReplacements stores client-encrypted replacements
// @Summary     Submit client ciphertexts
// @Description Replace server-encrypted values with client-opaque ciphertext, stored byte-for-byte
// @Tags        encryption
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ReplacementsRequest true "Replacement batch"
// @Success     200 {object} map[string]int "Number of fields replaced"
// @Failure     400 {object} ErrorResponse "Value is not client ciphertext"
// @Router      /encryption/migration/replacements [post]
func (h *MigrationHandler) SubmitReplacements(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ReplacementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	applied, err := h.migrationService.SubmitReplacements(userID, req.Replacements)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"replaced": applied})
}

// Complete marks the user's migration finished
// @Summary     Complete migration
// @Description Record that the client owns field encryption from now on
// @Tags        encryption
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.EncryptionMigration
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /encryption/migration/complete [post]
func (h *MigrationHandler) Complete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	status, err := h.migrationService.MarkMigrated(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
