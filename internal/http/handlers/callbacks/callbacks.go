package callbacks

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/teranga-pos/payments/internal/http/response"
	"github.com/teranga-pos/payments/internal/logger"
	"github.com/teranga-pos/payments/internal/payment/registry"
	"github.com/teranga-pos/payments/internal/provider"
	"github.com/teranga-pos/payments/internal/queue"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const callbackBodyLimit = 1 << 20

// Handler ingests provider callbacks. Routes here are unauthenticated;
// signature verification happens in the worker, never inline, so the
// provider gets its acknowledgement without waiting on us.
type Handler struct {
	*provider.Container
}

// New creates the callback handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// Receive accepts a provider callback, captures it verbatim and hands it to
// the queue. The response never reveals whether a payment matched.
func (h *Handler) Receive(c *gin.Context) {
	log := requestLog(c)

	tenantID, err := strconv.ParseUint(c.Param("tenant_id"), 10, 64)
	if err != nil || tenantID == 0 {
		response.NotFound(c, "not found")
		return
	}
	providerCode := c.Param("provider")
	if !registry.Supported(providerCode) {
		response.NotFound(c, "not found")
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, callbackBodyLimit))
	if err != nil {
		log.Warnw("payment_callback_body_read_failed",
			"tenant_id", tenantID,
			"provider", providerCode,
			"error", err,
		)
		response.BadRequest(c, "body read failed")
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}

	payload := queue.PaymentWebhookPayload{
		TenantID:     uint(tenantID),
		ProviderCode: providerCode,
		Headers:      headers,
		Body:         body,
		ReceivedAt:   time.Now().Unix(),
	}

	log.Infow("payment_callback_received",
		"tenant_id", tenantID,
		"provider", providerCode,
		"client_ip", c.ClientIP(),
		"body_size", len(body),
	)

	if h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueuePaymentWebhook(payload, h.Config.Payment.WebhookMaxRetries); err != nil {
			log.Errorw("payment_callback_enqueue_failed",
				"tenant_id", tenantID,
				"provider", providerCode,
				"error", err,
			)
			c.String(http.StatusInternalServerError, "retry later")
			return
		}
		response.Success(c, gin.H{"accepted": true})
		return
	}

	// No queue: process inline so single-node deployments still work.
	if err := h.PaymentService.ProcessWebhook(c.Request.Context(), payload); err != nil {
		log.Warnw("payment_callback_inline_failed",
			"tenant_id", tenantID,
			"provider", providerCode,
			"error", err,
		)
		c.String(http.StatusInternalServerError, "retry later")
		return
	}
	response.Success(c, gin.H{"accepted": true})
}
