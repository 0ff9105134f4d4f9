package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stripesdk "github.com/stripe/stripe-go/v74"

	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/domain"
	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/event"
	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/gateway"
	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/repository"
	apperrors "github.com/HarshMishra-Git/Only-Thing-sub001/pkg/errors"
)

// Gateway is the provider-facing contract the service depends on. Satisfied
// by gateway.PaymentGateway; mocked in tests.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, params gateway.CreatePaymentIntentParams, country string) (*gateway.PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string, provider gateway.Provider) (*gateway.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, id string, provider gateway.Provider) (*gateway.PaymentIntent, error)
	CapturePayment(ctx context.Context, id string, provider gateway.Provider, amount *float64) (*gateway.PaymentIntent, error)
	RefundPayment(ctx context.Context, params gateway.RefundParams) (*gateway.Refund, error)
	VerifyStripeWebhook(payload []byte, signature string) (stripesdk.Event, error)
	VerifyRazorpayWebhookRaw(body []byte, signature string) bool
	SupportedPaymentMethods(country string) []string
}

// PaymentService implements the business logic for payment operations.
type PaymentService struct {
	gateway  Gateway
	repo     repository.PaymentRecordRepository
	producer *event.Producer
	deduper  Deduper
	logger   *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	gw Gateway,
	repo repository.PaymentRecordRepository,
	producer *event.Producer,
	deduper Deduper,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		gateway:  gw,
		repo:     repo,
		producer: producer,
		deduper:  deduper,
		logger:   logger,
	}
}

// CreateIntentInput holds the parameters for creating a payment intent.
// Amount is in major currency units.
type CreateIntentInput struct {
	Amount      float64           `json:"amount" validate:"required,gt=0"`
	Currency    string            `json:"currency" validate:"required,len=3"`
	Country     string            `json:"country" validate:"omitempty,len=2"`
	Customer    string            `json:"customer" validate:"omitempty"`
	Description string            `json:"description" validate:"omitempty,max=500"`
	Metadata    map[string]string `json:"metadata" validate:"omitempty"`
}

// RefundInput holds the parameters for refunding a payment. A nil amount
// requests a full refund.
type RefundInput struct {
	PaymentIntentID string   `json:"payment_intent_id" validate:"required"`
	Amount          *float64 `json:"amount" validate:"omitempty,gt=0"`
	Reason          string   `json:"reason" validate:"omitempty,max=500"`
}

// CreateIntent creates a payment intent with the provider selected for the
// buyer's currency and country, then records which provider minted it.
func (s *PaymentService) CreateIntent(ctx context.Context, input *CreateIntentInput) (*gateway.PaymentIntent, error) {
	if input.Amount <= 0 {
		return nil, apperrors.InvalidInput("amount must be greater than zero")
	}
	if len(input.Currency) != 3 {
		return nil, apperrors.InvalidInput("currency must be a 3-letter ISO code")
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, gateway.CreatePaymentIntentParams{
		Amount:      input.Amount,
		Currency:    input.Currency,
		Metadata:    input.Metadata,
		Customer:    input.Customer,
		Description: input.Description,
	}, input.Country)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	now := time.Now().UTC()
	rec := &domain.PaymentRecord{
		ID:          intent.ID,
		Provider:    string(intent.Provider),
		Amount:      intent.Amount,
		Currency:    intent.Currency,
		Status:      domain.PaymentStatusCreated,
		Country:     strings.ToUpper(input.Country),
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		// The intent exists at the provider; losing the record degrades
		// refund routing to the id-prefix fallback rather than the payment.
		s.logger.ErrorContext(ctx, "failed to persist payment record",
			slog.String("intent_id", intent.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishIntentCreated(ctx, intent, rec.Country); err != nil {
		s.logger.WarnContext(ctx, "failed to publish intent_created event",
			slog.String("intent_id", intent.ID),
			slog.String("error", err.Error()),
		)
	}

	return intent, nil
}

// GetIntent retrieves current provider state for an intent. When the caller
// does not name the provider, the stored record decides; a missing record
// falls back to the id-prefix heuristic.
func (s *PaymentService) GetIntent(ctx context.Context, id, provider string) (*gateway.PaymentIntent, error) {
	p, err := s.resolveProvider(ctx, id, provider)
	if err != nil {
		return nil, err
	}
	return s.gateway.RetrievePaymentIntent(ctx, id, p)
}

// ConfirmIntent confirms a payment intent at its minting provider.
func (s *PaymentService) ConfirmIntent(ctx context.Context, id, provider string) (*gateway.PaymentIntent, error) {
	p, err := s.resolveProvider(ctx, id, provider)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.ConfirmPayment(ctx, id, p)
	if err != nil {
		return nil, err
	}

	s.syncRecordStatus(ctx, intent)
	return intent, nil
}

// CaptureIntent captures an authorized payment, optionally for a partial
// amount in major units.
func (s *PaymentService) CaptureIntent(ctx context.Context, id, provider string, amount *float64) (*gateway.PaymentIntent, error) {
	p, err := s.resolveProvider(ctx, id, provider)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CapturePayment(ctx, id, p, amount)
	if err != nil {
		return nil, err
	}

	s.syncRecordStatus(ctx, intent)
	return intent, nil
}

// RefundIntent issues a full or partial refund. The stored record routes the
// refund to the minting provider; without one the gateway falls back to the
// id-prefix heuristic.
func (s *PaymentService) RefundIntent(ctx context.Context, input *RefundInput) (*gateway.Refund, error) {
	if input.PaymentIntentID == "" {
		return nil, apperrors.InvalidInput("payment_intent_id is required")
	}
	if input.Amount != nil && *input.Amount <= 0 {
		return nil, apperrors.InvalidInput("refund amount must be greater than zero")
	}

	params := gateway.RefundParams{
		PaymentIntentID: input.PaymentIntentID,
		Amount:          input.Amount,
		Reason:          input.Reason,
	}
	if rec, err := s.repo.GetByID(ctx, input.PaymentIntentID); err == nil {
		params.Provider = gateway.Provider(rec.Provider)
	}

	refund, err := s.gateway.RefundPayment(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, input.PaymentIntentID, domain.PaymentStatusRefunded); err != nil {
		s.logger.WarnContext(ctx, "failed to mark record refunded",
			slog.String("intent_id", input.PaymentIntentID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishPaymentRefunded(ctx, refund); err != nil {
		s.logger.WarnContext(ctx, "failed to publish payment.refunded event",
			slog.String("refund_id", refund.ID),
			slog.String("error", err.Error()),
		)
	}

	return refund, nil
}

// SupportedMethods lists the payment method types offered in a country.
func (s *PaymentService) SupportedMethods(country string) []string {
	return s.gateway.SupportedPaymentMethods(country)
}

func (s *PaymentService) resolveProvider(ctx context.Context, id, provider string) (gateway.Provider, error) {
	if provider != "" {
		return gateway.ParseProvider(provider)
	}

	if rec, err := s.repo.GetByID(ctx, id); err == nil {
		return gateway.Provider(rec.Provider), nil
	}

	return gateway.InferProvider(id), nil
}

// syncRecordStatus mirrors terminal provider statuses into the local record.
// Intermediate statuses are left alone; webhooks own the authoritative
// transition.
func (s *PaymentService) syncRecordStatus(ctx context.Context, intent *gateway.PaymentIntent) {
	var status string
	switch intent.Status {
	case gateway.StatusSucceeded, "captured":
		status = domain.PaymentStatusSucceeded
	case "canceled", "failed":
		status = domain.PaymentStatusFailed
	default:
		return
	}

	if err := s.repo.UpdateStatus(ctx, intent.ID, status); err != nil {
		s.logger.WarnContext(ctx, "failed to sync record status",
			slog.String("intent_id", intent.ID),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
	}
}
