package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/petstore"
	apperrors "github.com/pawprint/go-reminder-service/internal/shared/errors"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
	syncer "github.com/pawprint/go-reminder-service/internal/sync"
)

// PreferencesHandler handles notification preference requests
type PreferencesHandler struct {
	repo *petstore.PreferencesRepository
	orch *syncer.Orchestrator
	log  *logger.Logger
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(repo *petstore.PreferencesRepository, orch *syncer.Orchestrator, log *logger.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		repo: repo,
		orch: orch,
		log:  log,
	}
}

// GetPreferences returns the owner's notification preferences, defaulting
// to everything enabled when none are stored
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	ownerID := c.Param("owner_id")

	prefs, err := h.repo.Get(c.Request.Context(), ownerID)
	if err != nil {
		h.log.Error("Failed to get preferences", "error", err, "owner_id", ownerID)
		c.JSON(http.StatusInternalServerError,
			apperrors.NewInternalError("Failed to get preferences", err))
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences stores the owner's preferences and triggers a sync so
// toggling a category off sweeps its reminders promptly
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	ownerID := c.Param("owner_id")

	var req struct {
		VaccineRemindersEnabled    bool `json:"vaccine_reminders_enabled"`
		MedicationRemindersEnabled bool `json:"medication_reminders_enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid request", err))
		return
	}

	prefs := &domain.NotificationPreferences{
		OwnerID:                    ownerID,
		VaccineRemindersEnabled:    req.VaccineRemindersEnabled,
		MedicationRemindersEnabled: req.MedicationRemindersEnabled,
	}
	if err := h.repo.Update(c.Request.Context(), prefs); err != nil {
		h.log.Error("Failed to update preferences", "error", err, "owner_id", ownerID)
		c.JSON(http.StatusInternalServerError,
			apperrors.NewInternalError("Failed to update preferences", err))
		return
	}

	triggered := h.orch.RequestSync(c.Request.Context(), ownerID)

	c.JSON(http.StatusOK, gin.H{
		"message":        "Preferences updated",
		"sync_triggered": triggered,
	})
}
