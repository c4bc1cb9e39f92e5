package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"push-service/internal/analytics"
	"push-service/internal/db"
	"push-service/internal/logging"
	"push-service/internal/models"
	"push-service/internal/notifier"
	"push-service/internal/registry"
	"push-service/internal/retry"
	"push-service/internal/validator"
	"push-service/internal/ws"
)

// defaultAnalyticsWindow is how far back the analytics endpoint looks when
// the caller gives no since parameter.
const defaultAnalyticsWindow = 30 * 24 * time.Hour

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	registry   *registry.Registry
	svc        *notifier.Service
	scheduler  *retry.Scheduler
	validator  *validator.Validator
	aggregator *analytics.Aggregator
	store      *db.DB
	hub        *ws.Hub
	logger     *logging.Logger
}

func NewHandler(reg *registry.Registry, svc *notifier.Service, scheduler *retry.Scheduler, val *validator.Validator, agg *analytics.Aggregator, store *db.DB, hub *ws.Hub, logger *logging.Logger) *Handler {
	return &Handler{
		registry:   reg,
		svc:        svc,
		scheduler:  scheduler,
		validator:  val,
		aggregator: agg,
		store:      store,
		hub:        hub,
		logger:     logger,
	}
}

type registerRequest struct {
	UserID   int    `json:"user_id" binding:"required"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

func (h *Handler) RegisterSubscription(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid subscription request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sub, err := h.registry.Register(c.Request.Context(), req.UserID, req.Endpoint, req.P256dh, req.Auth)
	if err != nil {
		var verr *registry.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		h.logger.Errorf("Failed to register subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register subscription"})
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) GetSubscriptionsByUserID(c *gin.Context) {
	userIDStr := c.Param("user_id")
	userID, err := strconv.Atoi(userIDStr)
	if err != nil {
		h.logger.Errorf("Invalid user_id %s: %v", userIDStr, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	subs, err := h.registry.ListActive(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorf("Failed to get subscriptions for user_id %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get subscriptions"})
		return
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	c.JSON(http.StatusOK, subs)
}

func (h *Handler) DeleteSubscription(c *gin.Context) {
	id := c.Param("id")
	if err := h.registry.Remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
			return
		}
		h.logger.Errorf("Failed to delete subscription %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subscription"})
		return
	}
	c.Status(http.StatusNoContent)
}

type dispatchRequest struct {
	UserID int               `json:"user_id" binding:"required"`
	Title  string            `json:"title" binding:"required"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
	Type   string            `json:"type"`
}

func (h *Handler) DispatchNotification(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid dispatch request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.svc.Notify(c.Request.Context(), models.DispatchTask{
		UserID: req.UserID,
		Title:  req.Title,
		Body:   req.Body,
		Data:   req.Data,
		Type:   models.ParseNotificationType(req.Type),
	})
	if err != nil {
		h.logger.Errorf("Dispatch failed for user %d: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": result.SentCount})
}

func (h *Handler) RunRetries(c *gin.Context) {
	summary, err := h.scheduler.Run(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Retry run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) RunSweep(c *gin.Context) {
	summary, err := h.validator.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetAnalytics(c *gin.Context) {
	since := time.Now().Add(-defaultAnalyticsWindow)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since parameter, expected RFC3339"})
			return
		}
		since = parsed
	}

	snapshot, err := h.aggregator.Aggregate(c.Request.Context(), since)
	if err != nil {
		h.logger.Errorf("Aggregation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) ClickDeliveryLog(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.MarkDeliveryLogClicked(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Delivery log not found or not delivered"})
			return
		}
		h.logger.Errorf("Failed to mark delivery log %s clicked: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record click"})
		return
	}
	c.Status(http.StatusNoContent)
}

// LiveStatus upgrades the connection and streams delivery status updates for
// the user until the client disconnects.
func (h *Handler) LiveStatus(c *gin.Context) {
	userIDStr := c.Param("user_id")
	userID, err := strconv.Atoi(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed for user %d: %v", userID, err)
		return
	}

	h.hub.AddConnection(userID, conn)
	defer func() {
		h.hub.RemoveConnection(userID, conn)
		conn.Close()
	}()

	// Drain client frames; the hub writes status updates independently.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
