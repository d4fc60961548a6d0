package handlers

import (
	"errors"

	"nilepay/internal/apperrors"
	"nilepay/internal/processor"
	"nilepay/internal/services/reconciliation"
	"nilepay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WebhookHandler receives provider callbacks. Payment events and connect
// (account) events arrive on separate endpoints, each signed with its own
// secret.
type WebhookHandler struct {
	service         reconciliation.Service
	paymentVerifier processor.SignatureVerifier
	connectVerifier processor.SignatureVerifier
	logger          *zap.Logger
}

func NewWebhookHandler(service reconciliation.Service, paymentVerifier, connectVerifier processor.SignatureVerifier, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:         service,
		paymentVerifier: paymentVerifier,
		connectVerifier: connectVerifier,
		logger:          logger,
	}
}

func (h *WebhookHandler) Payments(c *fiber.Ctx) error {
	return h.handle(c, h.paymentVerifier)
}

func (h *WebhookHandler) Connect(c *fiber.Ctx) error {
	return h.handle(c, h.connectVerifier)
}

func (h *WebhookHandler) handle(c *fiber.Ctx, verifier processor.SignatureVerifier) error {
	// Signature verification needs the raw bytes, before any parsing.
	payload := c.Body()
	signature := c.Get("Stripe-Signature")

	err := h.service.HandleWebhook(c.Context(), verifier, payload, signature)
	if err == nil {
		return utils.Success(c, fiber.Map{"received": true})
	}

	var authenticity *apperrors.AuthenticityError
	if errors.As(err, &authenticity) {
		h.logger.Warn("webhook signature rejected", zap.Error(err))
		return utils.BadRequest(c, "invalid signature")
	}

	// A non-2xx makes the provider redeliver, which is what we want for
	// transient failures.
	h.logger.Error("webhook processing failed", zap.Error(err))
	return utils.InternalError(c, "webhook processing failed")
}
