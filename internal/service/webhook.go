package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/domain"
	apperrors "github.com/HarshMishra-Git/Only-Thing-sub001/pkg/errors"
)

// Stripe event types the service acts on. Everything else is acknowledged
// and ignored so Stripe stops redelivering.
const (
	stripeEventIntentSucceeded = "payment_intent.succeeded"
	stripeEventIntentFailed    = "payment_intent.payment_failed"
)

// Razorpay event types the service acts on.
const (
	razorpayEventPaymentCaptured = "payment.captured"
	razorpayEventPaymentFailed   = "payment.failed"
	razorpayEventRefundProcessed = "refund.processed"
)

// razorpayWebhookEnvelope is the subset of Razorpay's webhook body the
// service reads. The entity id routing a status update is the order id,
// which is what the local record is keyed by.
type razorpayWebhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID          string `json:"id"`
				OrderID     string `json:"order_id"`
				Amount      int64  `json:"amount"`
				Currency    string `json:"currency"`
				Status      string `json:"status"`
				ErrorReason string `json:"error_reason"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
				Currency  string `json:"currency"`
				Status    string `json:"status"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// stripeIntentPayload is the subset of the payment_intent object carried in
// Stripe webhook events.
type stripeIntentPayload struct {
	ID               string `json:"id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// HandleStripeWebhook verifies the signature over the raw body, then applies
// the event to the local record. Duplicate deliveries are acknowledged
// without reprocessing.
func (s *PaymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.VerifyStripeWebhook(payload, signature)
	if err != nil {
		return err
	}

	seen, err := s.deduper.Seen(ctx, "stripe:"+ev.ID)
	if err != nil {
		// Dedupe store trouble must not drop the event; process anyway.
		s.logger.WarnContext(ctx, "webhook dedupe check failed",
			slog.String("event_id", ev.ID),
			slog.String("error", err.Error()),
		)
	}
	if seen {
		s.logger.InfoContext(ctx, "duplicate stripe webhook ignored",
			slog.String("event_id", ev.ID),
			slog.String("event_type", string(ev.Type)),
		)
		return nil
	}

	switch string(ev.Type) {
	case stripeEventIntentSucceeded, stripeEventIntentFailed:
	default:
		s.logger.DebugContext(ctx, "unhandled stripe webhook event",
			slog.String("event_type", string(ev.Type)),
		)
		return nil
	}

	var intent stripeIntentPayload
	if err := json.Unmarshal(ev.Data.Raw, &intent); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("malformed payment_intent payload: %v", err))
	}

	rec := s.recordFor(ctx, intent.ID, "stripe", float64(intent.Amount)/100, intent.Currency)

	switch string(ev.Type) {
	case stripeEventIntentSucceeded:
		s.applyStatus(ctx, rec, domain.PaymentStatusSucceeded)
		if err := s.producer.PublishPaymentSucceeded(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "failed to publish payment.succeeded event",
				slog.String("intent_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	case stripeEventIntentFailed:
		reason := ""
		if intent.LastPaymentError != nil {
			reason = intent.LastPaymentError.Message
		}
		s.applyStatus(ctx, rec, domain.PaymentStatusFailed)
		if err := s.producer.PublishPaymentFailed(ctx, rec, reason); err != nil {
			s.logger.WarnContext(ctx, "failed to publish payment.failed event",
				slog.String("intent_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "stripe webhook processed",
		slog.String("event_id", ev.ID),
		slog.String("event_type", string(ev.Type)),
		slog.String("intent_id", intent.ID),
	)

	return nil
}

// HandleRazorpayWebhook verifies the HMAC signature over the raw body, then
// applies the event to the local record keyed by the Razorpay order id.
// eventID comes from the X-Razorpay-Event-Id header and deduplicates
// redeliveries.
func (s *PaymentService) HandleRazorpayWebhook(ctx context.Context, body []byte, signature, eventID string) error {
	if !s.gateway.VerifyRazorpayWebhookRaw(body, signature) {
		return apperrors.WebhookVerificationFailed("razorpay")
	}

	var env razorpayWebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("malformed webhook body: %v", err))
	}

	if eventID != "" {
		seen, err := s.deduper.Seen(ctx, "razorpay:"+eventID)
		if err != nil {
			s.logger.WarnContext(ctx, "webhook dedupe check failed",
				slog.String("event_id", eventID),
				slog.String("error", err.Error()),
			)
		}
		if seen {
			s.logger.InfoContext(ctx, "duplicate razorpay webhook ignored",
				slog.String("event_id", eventID),
				slog.String("event_type", env.Event),
			)
			return nil
		}
	}

	switch env.Event {
	case razorpayEventPaymentCaptured:
		pay := env.Payload.Payment.Entity
		rec := s.recordFor(ctx, pay.OrderID, "razorpay", float64(pay.Amount)/100, pay.Currency)
		s.applyStatus(ctx, rec, domain.PaymentStatusSucceeded)
		if err := s.producer.PublishPaymentSucceeded(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "failed to publish payment.succeeded event",
				slog.String("intent_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	case razorpayEventPaymentFailed:
		pay := env.Payload.Payment.Entity
		rec := s.recordFor(ctx, pay.OrderID, "razorpay", float64(pay.Amount)/100, pay.Currency)
		s.applyStatus(ctx, rec, domain.PaymentStatusFailed)
		if err := s.producer.PublishPaymentFailed(ctx, rec, pay.ErrorReason); err != nil {
			s.logger.WarnContext(ctx, "failed to publish payment.failed event",
				slog.String("intent_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	case razorpayEventRefundProcessed:
		// Refund deliveries include the payment entity when the webhook is
		// configured for it; the order id there matches the stored record.
		id := env.Payload.Payment.Entity.OrderID
		if id == "" {
			id = env.Payload.Refund.Entity.PaymentID
		}
		s.applyStatusByID(ctx, id, domain.PaymentStatusRefunded)
	default:
		s.logger.DebugContext(ctx, "unhandled razorpay webhook event",
			slog.String("event_type", env.Event),
		)
		return nil
	}

	s.logger.InfoContext(ctx, "razorpay webhook processed",
		slog.String("event_id", eventID),
		slog.String("event_type", env.Event),
	)

	return nil
}

// recordFor loads the stored record for an intent, or synthesizes one from
// the webhook payload when the record was never persisted. The synthetic
// record only feeds event payloads; it is not written back.
func (s *PaymentService) recordFor(ctx context.Context, id, provider string, amount float64, currency string) *domain.PaymentRecord {
	if rec, err := s.repo.GetByID(ctx, id); err == nil {
		return rec
	}
	return &domain.PaymentRecord{
		ID:       id,
		Provider: provider,
		Amount:   amount,
		Currency: currency,
	}
}

func (s *PaymentService) applyStatus(ctx context.Context, rec *domain.PaymentRecord, status string) {
	rec.Status = status
	s.applyStatusByID(ctx, rec.ID, status)
}

func (s *PaymentService) applyStatusByID(ctx context.Context, id, status string) {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		s.logger.WarnContext(ctx, "failed to update record status",
			slog.String("intent_id", id),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
	}
}
