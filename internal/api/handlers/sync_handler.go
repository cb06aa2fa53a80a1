package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/misaops/misacard-server/internal/pkg/logger"
	"github.com/misaops/misacard-server/internal/pkg/ratelimit"
	"github.com/misaops/misacard-server/internal/service"
)

type SyncHandler struct {
	syncService service.SyncService
	limiter     *ratelimit.RateLimiter
}

func NewSyncHandler(syncService service.SyncService, limiter *ratelimit.RateLimiter) *SyncHandler {
	return &SyncHandler{syncService: syncService, limiter: limiter}
}

// SyncCard godoc
// @Summary Submit card state discovered on the public card-query page
// @Description Signed, time-bounded sync channel. Every outcome is HTTP 200:
// @Description rejections and no-ops are reported in the body, never as errors.
// @Tags public
// @Accept json
// @Produce json
// @Param card_id path string true "Card secret"
// @Param request body service.SyncRequest true "Claimed card state, timestamp and signature"
// @Success 200 {object} service.SyncOutcome
// @Failure 400 {object} map[string]string
// @Router /public/cards/{card_id}/sync [post]
func (h *SyncHandler) SyncCard(c *gin.Context) {
	var req service.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed sync payload"})
		return
	}

	outcome := h.syncService.Sync(c.Param("card_id"), &req)
	if outcome.Reason == service.SyncReasonInvalidSignature {
		h.recordSignatureFailure(c)
	}
	c.JSON(http.StatusOK, outcome)
}

// recordSignatureFailure counts rejected signatures per IP and blocks the
// client once the failure budget is spent. A signature that fails HMAC
// verification cannot come from the card-query page, so repeats are treated
// as forgery attempts rather than flaky clients.
func (h *SyncHandler) recordSignatureFailure(c *gin.Context) {
	ip := c.ClientIP()
	key := fmt.Sprintf("misacard:sigfail:%s", ip)

	info, err := h.limiter.Check(c.Request.Context(), key, ratelimit.SignatureFailureLimit)
	if err != nil {
		logger.Error("Failed to record signature failure", zap.Error(err))
		return
	}
	if info.Allowed {
		return
	}

	if err := h.limiter.Block(c.Request.Context(), ip, ratelimit.BlockDuration); err != nil {
		logger.Error("Failed to block client", zap.String("ip", ip), zap.Error(err))
		return
	}
	logger.Warn("Blocked client after repeated invalid sync signatures",
		zap.String("ip", ip),
	)
}
