package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	checkindomain "device-checkin/internal/checkin/domain"
	"device-checkin/internal/gcm/domain"
	"device-checkin/internal/gcm/notify"
)

const defaultSyncTimeout = 30 * time.Second

// IdentityReader exposes the persisted identity. *checkin/service.Service implements it.
type IdentityReader interface {
	Current(ctx context.Context) (checkindomain.DeviceIdentity, error)
}

// HTTPHandler serves the front over HTTP.
type HTTPHandler struct {
	front       *Front
	identity    IdentityReader
	syncTimeout time.Duration
}

// NewHTTPHandler returns an HTTP handler for front. syncTimeout bounds ?sync=1 waits.
func NewHTTPHandler(front *Front, identity IdentityReader, syncTimeout time.Duration) *HTTPHandler {
	if syncTimeout <= 0 {
		syncTimeout = defaultSyncTimeout
	}
	return &HTTPHandler{front: front, identity: identity, syncTimeout: syncTimeout}
}

// RegisterRoutes mounts the front routes on r.
func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/c2dm/register", h.intent(domain.ActionRegister))
	r.POST("/c2dm/unregister", h.intent(domain.ActionUnregister))
	r.GET("/identity", h.getIdentity)
}

func (h *HTTPHandler) intent(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrCodeAuthFailed})
			return
		}
		in := Intent{
			ID:         uuid.NewString(),
			Action:     action,
			Sender:     c.PostForm("sender"),
			SenderInfo: c.PostForm("info"),
			Caller:     caller,
		}
		if c.Query("sync") != "1" {
			if err := h.front.Submit(in); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.ErrCodeServiceNotAvailable, "intent_id": in.ID})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"intent_id": in.ID})
			return
		}

		reply := notify.NewOneShot()
		in.Reply = reply
		if err := h.front.Submit(in); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.ErrCodeServiceNotAvailable, "intent_id": in.ID})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.syncTimeout)
		defer cancel()
		payload, err := reply.Wait(ctx)
		if err != nil {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "TIMEOUT", "intent_id": in.ID})
			return
		}
		c.JSON(statusFor(payload), payload)
	}
}

func (h *HTTPHandler) getIdentity(c *gin.Context) {
	id, err := h.identity.Current(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"checked_in":      id.IsSet(),
		"device_id":       strconv.FormatInt(id.DeviceID, 10),
		"android_id_hex":  strconv.FormatUint(uint64(id.DeviceID), 16),
		"authenticated":   id.Authenticated(),
		"last_checkin_ms": id.LastCheckinMs,
	})
}

func statusFor(p domain.Payload) int {
	switch {
	case p.OK():
		return http.StatusOK
	case p.Error == domain.ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case p.Error == domain.ErrCodeInvalidSender:
		return http.StatusForbidden
	}
	return http.StatusBadGateway
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}
