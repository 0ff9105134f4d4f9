package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/service"
	"github.com/HarshMishra-Git/Only-Thing-sub001/pkg/httputil"
	"github.com/HarshMishra-Git/Only-Thing-sub001/pkg/validator"
)

// PaymentHandler handles HTTP requests for payment endpoints.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateIntentRequest is the JSON request body for creating a payment
// intent. Amount is in major currency units (e.g. 49.99 for $49.99).
type CreateIntentRequest struct {
	Amount      float64           `json:"amount" validate:"required,gt=0"`
	Currency    string            `json:"currency" validate:"required,len=3,alpha"`
	Country     string            `json:"country" validate:"omitempty,len=2,alpha"`
	Customer    string            `json:"customer" validate:"omitempty,max=255"`
	Description string            `json:"description" validate:"omitempty,max=500"`
	Metadata    map[string]string `json:"metadata" validate:"omitempty,max=20"`
}

// CaptureIntentRequest is the JSON request body for capturing an authorized
// payment. A nil amount captures the full authorized amount on Stripe.
type CaptureIntentRequest struct {
	Amount *float64 `json:"amount" validate:"omitempty,gt=0"`
}

// RefundRequest is the JSON request body for refunding a payment. A nil
// amount requests a full refund.
type RefundRequest struct {
	PaymentIntentID string   `json:"payment_intent_id" validate:"required,max=255"`
	Amount          *float64 `json:"amount" validate:"omitempty,gt=0"`
	Reason          string   `json:"reason" validate:"omitempty,max=500"`
}

// --- Handlers ---

// CreateIntent handles POST /api/v1/payments/intents
// @Summary Create a payment intent
// @Description Creates an intent with the provider selected for the buyer's currency and country.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body CreateIntentRequest true "Intent creation data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/payments/intents [post]
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	country := req.Country
	if country == "" {
		country = r.Header.Get("X-Country")
	}

	intent, err := h.service.CreateIntent(r.Context(), &service.CreateIntentInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Country:     country,
		Customer:    req.Customer,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: intent})
}

// GetIntent handles GET /api/v1/payments/intents/{id}
// @Summary Get a payment intent
// @Description Re-fetches current provider state for the intent. The optional provider query parameter overrides stored routing.
// @Tags payments
// @Produce json
// @Param id path string true "Payment intent id"
// @Param provider query string false "Provider override (stripe or razorpay)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/payments/intents/{id} [get]
func (h *PaymentHandler) GetIntent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	intent, err := h.service.GetIntent(r.Context(), id, r.URL.Query().Get("provider"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: intent})
}

// ConfirmIntent handles POST /api/v1/payments/intents/{id}/confirm
// @Summary Confirm a payment intent
// @Tags payments
// @Produce json
// @Param id path string true "Payment intent id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/payments/intents/{id}/confirm [post]
func (h *PaymentHandler) ConfirmIntent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	intent, err := h.service.ConfirmIntent(r.Context(), id, r.URL.Query().Get("provider"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: intent})
}

// CaptureIntent handles POST /api/v1/payments/intents/{id}/capture
// @Summary Capture an authorized payment
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "Payment intent id"
// @Param request body CaptureIntentRequest false "Optional partial amount"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/payments/intents/{id}/capture [post]
func (h *PaymentHandler) CaptureIntent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CaptureIntentRequest
	if r.ContentLength > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
		if err := validator.Validate(req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	}

	intent, err := h.service.CaptureIntent(r.Context(), id, r.URL.Query().Get("provider"), req.Amount)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: intent})
}

// Refund handles POST /api/v1/payments/refunds
// @Summary Refund a payment
// @Description Issues a full or partial refund against the minting provider.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body RefundRequest true "Refund data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/payments/refunds [post]
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	refund, err := h.service.RefundIntent(r.Context(), &service.RefundInput{
		PaymentIntentID: req.PaymentIntentID,
		Amount:          req.Amount,
		Reason:          req.Reason,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: refund})
}

// SupportedMethods handles GET /api/v1/payments/methods
// @Summary List supported payment method types
// @Tags payments
// @Produce json
// @Param country query string false "ISO 3166-1 alpha-2 country code"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/payments/methods [get]
func (h *PaymentHandler) SupportedMethods(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		country = r.Header.Get("X-Country")
	}

	methods := h.service.SupportedMethods(country)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"country": country,
		"methods": methods,
	}})
}
