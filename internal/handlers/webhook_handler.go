package handlers

import (
	"io"
	"net/http"

	"hercules_backend/internal/config"
	"hercules_backend/internal/logger"
	billingsvc "hercules_backend/internal/services/billing"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82/webhook"
)

// maxWebhookBody bounds the payload Stripe may deliver.
const maxWebhookBody = 64 * 1024

type WebhookHandler struct {
	BaseHandler
	reconciler *billingsvc.ReconcilerService
	cfg        *config.Config
}

func NewWebhookHandler(base BaseHandler, reconciler *billingsvc.ReconcilerService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{BaseHandler: base, reconciler: reconciler, cfg: cfg}
}

// HandleStripe verifies the event signature and hands it to the reconciler.
// Always answers 200 for events we processed or deliberately skipped, so
// Stripe stops redelivering; processing errors get a 500 and a redelivery.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(payload,
		c.GetHeader("Stripe-Signature"), h.cfg.Billing.StripeWebhookSecret)
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "webhook signature rejected", err)
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.reconciler.HandleEvent(c.Request.Context(), GetDB(c), &event); err != nil {
		logger.CtxWithError(c.Request.Context(), "webhook processing failed", err,
			"event_id", event.ID, "event_type", event.Type)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusOK)
}
