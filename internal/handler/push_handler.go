package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pawprint/go-reminder-service/internal/push"
	apperrors "github.com/pawprint/go-reminder-service/internal/shared/errors"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
	syncer "github.com/pawprint/go-reminder-service/internal/sync"
)

// PushHandler handles push subscription registration
type PushHandler struct {
	store   *push.Store
	service *push.Service
	orch    *syncer.Orchestrator
	log     *logger.Logger
}

// NewPushHandler creates a new push handler
func NewPushHandler(store *push.Store, service *push.Service, orch *syncer.Orchestrator, log *logger.Logger) *PushHandler {
	return &PushHandler{
		store:   store,
		service: service,
		orch:    orch,
		log:     log,
	}
}

type subscribeRequest struct {
	OwnerID    string `json:"owner_id" binding:"required"`
	Endpoint   string `json:"endpoint" binding:"required"`
	P256dhKey  string `json:"p256dh_key" binding:"required"`
	AuthKey    string `json:"auth_key" binding:"required"`
	DeviceName string `json:"device_name"`
}

// Subscribe registers a device for push delivery. Registering the first
// device effectively grants notification permission, so a sync is triggered
// to schedule anything that was waiting on it.
func (h *PushHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid request", err))
		return
	}

	sub := &push.Subscription{
		OwnerID:    req.OwnerID,
		Endpoint:   req.Endpoint,
		P256dhKey:  req.P256dhKey,
		AuthKey:    req.AuthKey,
		DeviceName: req.DeviceName,
	}
	if err := h.store.Create(c.Request.Context(), sub); err != nil {
		h.log.Error("Failed to store push subscription", "error", err, "owner_id", req.OwnerID)
		c.JSON(http.StatusInternalServerError,
			apperrors.NewInternalError("Failed to store subscription", err))
		return
	}

	h.orch.RequestSync(c.Request.Context(), req.OwnerID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Subscription registered",
	})
}

// Unsubscribe removes a device registration
func (h *PushHandler) Unsubscribe(c *gin.Context) {
	var req struct {
		OwnerID  string `json:"owner_id" binding:"required"`
		Endpoint string `json:"endpoint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid request", err))
		return
	}

	if err := h.store.Delete(c.Request.Context(), req.OwnerID, req.Endpoint); err != nil {
		h.log.Error("Failed to delete push subscription", "error", err, "owner_id", req.OwnerID)
		c.JSON(http.StatusInternalServerError,
			apperrors.NewInternalError("Failed to delete subscription", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Subscription removed",
	})
}

// VAPIDPublicKey returns the key clients need to subscribe
func (h *PushHandler) VAPIDPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"public_key": h.service.VAPIDPublicKey(),
	})
}
