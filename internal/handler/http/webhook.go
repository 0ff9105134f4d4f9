package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/service"
	"github.com/HarshMishra-Git/Only-Thing-sub001/pkg/httputil"
)

// webhookBodyLimit caps webhook payload size. Provider events are small;
// anything larger is hostile.
const webhookBodyLimit = 256 << 10 // 256KB

// WebhookHandler handles provider webhook deliveries. Signatures are
// computed over the raw body bytes, so the body must be read before any
// JSON decoding.
type WebhookHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewWebhookHandler creates a new webhook HTTP handler.
func NewWebhookHandler(svc *service.PaymentService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: svc,
		logger:  logger,
	}
}

// Stripe handles POST /webhooks/stripe
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookBodyLimit))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "unreadable request body"},
		})
		return
	}

	if err := h.service.HandleStripeWebhook(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"received": "true"}})
}

// Razorpay handles POST /webhooks/razorpay
func (h *WebhookHandler) Razorpay(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookBodyLimit))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "unreadable request body"},
		})
		return
	}

	err = h.service.HandleRazorpayWebhook(r.Context(), body,
		r.Header.Get("X-Razorpay-Signature"),
		r.Header.Get("X-Razorpay-Event-Id"),
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"received": "true"}})
}
