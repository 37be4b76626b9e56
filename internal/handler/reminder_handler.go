package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pawprint/go-reminder-service/internal/ledger"
	"github.com/pawprint/go-reminder-service/internal/medsched"
	apperrors "github.com/pawprint/go-reminder-service/internal/shared/errors"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
)

// ReminderHandler handles HTTP requests for medication reminders and the
// scheduled reminder ledger
type ReminderHandler struct {
	meds  *medsched.Scheduler
	store *ledger.Store
	log   *logger.Logger
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(meds *medsched.Scheduler, store *ledger.Store, log *logger.Logger) *ReminderHandler {
	return &ReminderHandler{
		meds:  meds,
		store: store,
		log:   log,
	}
}

// SetMedicationReminder saves a medication's reminder times
func (h *ReminderHandler) SetMedicationReminder(c *gin.Context) {
	var req medsched.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid request", err))
		return
	}

	if err := h.meds.SetReminder(c.Request.Context(), req); err != nil {
		h.log.Error("Failed to set medication reminder", "error", err,
			"owner_id", req.OwnerID, "pet_id", req.PetID)
		c.JSON(statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Medication reminder saved",
	})
}

// GetMedicationSchedule returns one medication's stored reminder definition
func (h *ReminderHandler) GetMedicationSchedule(c *gin.Context) {
	ownerID := c.Query("owner_id")
	petID := c.Query("pet_id")
	medicationName := c.Query("medication_name")
	if ownerID == "" || petID == "" || medicationName == "" {
		c.JSON(http.StatusBadRequest,
			apperrors.NewValidationError("owner_id, pet_id and medication_name are required", nil))
		return
	}

	def, err := h.meds.Schedule(c.Request.Context(), ownerID, petID, medicationName)
	if err != nil {
		c.JSON(statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, def)
}

// ListMedicationSchedules returns every stored definition for the owner
func (h *ReminderHandler) ListMedicationSchedules(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("owner_id is required", nil))
		return
	}

	defs, err := h.store.MedSchedules(c.Request.Context(), ownerID)
	if err != nil {
		h.log.Error("Failed to list medication schedules", "error", err, "owner_id", ownerID)
		c.JSON(http.StatusInternalServerError,
			apperrors.NewInternalError("Failed to list medication schedules", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedules": defs,
		"count":     len(defs),
	})
}

// RemoveMedicationReminder cancels a medication's reminders and deletes its
// definition
func (h *ReminderHandler) RemoveMedicationReminder(c *gin.Context) {
	ownerID := c.Query("owner_id")
	petID := c.Query("pet_id")
	medicationName := c.Query("medication_name")
	if ownerID == "" || petID == "" || medicationName == "" {
		c.JSON(http.StatusBadRequest,
			apperrors.NewValidationError("owner_id, pet_id and medication_name are required", nil))
		return
	}

	if err := h.meds.RemoveReminder(c.Request.Context(), ownerID, petID, medicationName); err != nil {
		h.log.Error("Failed to remove medication reminder", "error", err,
			"owner_id", ownerID, "pet_id", petID)
		c.JSON(statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Medication reminder removed",
	})
}

// ListScheduledReminders returns the owner's reminder ledger
func (h *ReminderHandler) ListScheduledReminders(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("owner_id is required", nil))
		return
	}

	entries, err := h.store.ScheduledEntries(c.Request.Context(), ownerID)
	if err != nil {
		h.log.Error("Failed to list scheduled reminders", "error", err, "owner_id", ownerID)
		c.JSON(http.StatusInternalServerError,
			apperrors.NewInternalError("Failed to list scheduled reminders", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reminders": entries,
		"count":     len(entries),
	})
}

// statusFor maps application error codes to HTTP statuses
func statusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case "VALIDATION_ERROR":
		return http.StatusBadRequest
	case "PERMISSION_DENIED":
		return http.StatusForbidden
	case "NOT_FOUND":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
