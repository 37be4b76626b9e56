package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/pawprint/go-reminder-service/internal/shared/errors"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
	syncer "github.com/pawprint/go-reminder-service/internal/sync"
)

// SyncHandler exposes the manual sync trigger
type SyncHandler struct {
	orch *syncer.Orchestrator
	log  *logger.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(orch *syncer.Orchestrator, log *logger.Logger) *SyncHandler {
	return &SyncHandler{orch: orch, log: log}
}

// TriggerSync requests a reminder sync for an owner. The request is
// accepted either way; "triggered" reports whether a run actually happened
// or the trigger collapsed into the cooldown window.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.OwnerID == "" {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("owner_id is required", err))
		return
	}

	triggered := h.orch.RequestSync(c.Request.Context(), req.OwnerID)

	c.JSON(http.StatusAccepted, gin.H{
		"triggered": triggered,
	})
}
