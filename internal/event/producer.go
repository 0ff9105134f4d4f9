package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/domain"
	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/gateway"
	pkgkafka "github.com/HarshMishra-Git/Only-Thing-sub001/pkg/kafka"
)

// Kafka topic constants for payment domain events.
const (
	TopicPaymentIntentCreated = "storefront.payment.intent_created"
	TopicPaymentSucceeded     = "storefront.payment.succeeded"
	TopicPaymentFailed        = "storefront.payment.failed"
	TopicPaymentRefunded      = "storefront.payment.refunded"
)

// Aggregate type constant.
const AggregateTypePayment = "payment"

// Source identifier for events originating from the payment gateway service.
const SourcePaymentGateway = "payment-gateway"

// IntentCreatedData is the payload for a payment.intent_created event.
type IntentCreatedData struct {
	IntentID string  `json:"intent_id"`
	Provider string  `json:"provider"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
	Country  string  `json:"country,omitempty"`
}

// PaymentSucceededData is the payload for a payment.succeeded event.
type PaymentSucceededData struct {
	IntentID string  `json:"intent_id"`
	Provider string  `json:"provider"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PaymentFailedData is the payload for a payment.failed event.
type PaymentFailedData struct {
	IntentID      string  `json:"intent_id"`
	Provider      string  `json:"provider"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	FailureReason string  `json:"failure_reason,omitempty"`
}

// PaymentRefundedData is the payload for a payment.refunded event.
type PaymentRefundedData struct {
	IntentID     string  `json:"intent_id"`
	RefundID     string  `json:"refund_id"`
	Provider     string  `json:"provider"`
	RefundAmount float64 `json:"refund_amount"`
	Currency     string  `json:"currency"`
	Reason       string  `json:"reason,omitempty"`
	Status       string  `json:"status"`
}

// Producer publishes payment domain events to Kafka. A nil inner producer
// disables publishing, which keeps local development and tests broker-free.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the payment gateway service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishIntentCreated publishes a payment.intent_created event.
func (p *Producer) PublishIntentCreated(ctx context.Context, intent *gateway.PaymentIntent, country string) error {
	if p.kafka == nil {
		return nil
	}

	data := IntentCreatedData{
		IntentID: intent.ID,
		Provider: string(intent.Provider),
		Amount:   intent.Amount,
		Currency: intent.Currency,
		Status:   intent.Status,
		Country:  country,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentIntentCreated, intent.ID, AggregateTypePayment, SourcePaymentGateway, data)
	if err != nil {
		return fmt.Errorf("create payment.intent_created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentIntentCreated, event); err != nil {
		return fmt.Errorf("publish payment.intent_created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.intent_created event",
		slog.String("intent_id", intent.ID),
		slog.String("provider", string(intent.Provider)),
	)

	return nil
}

// PublishPaymentSucceeded publishes a payment.succeeded event.
func (p *Producer) PublishPaymentSucceeded(ctx context.Context, rec *domain.PaymentRecord) error {
	if p.kafka == nil {
		return nil
	}

	data := PaymentSucceededData{
		IntentID: rec.ID,
		Provider: rec.Provider,
		Amount:   rec.Amount,
		Currency: rec.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentSucceeded, rec.ID, AggregateTypePayment, SourcePaymentGateway, data)
	if err != nil {
		return fmt.Errorf("create payment.succeeded event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentSucceeded, event); err != nil {
		return fmt.Errorf("publish payment.succeeded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.succeeded event",
		slog.String("intent_id", rec.ID),
		slog.String("provider", rec.Provider),
	)

	return nil
}

// PublishPaymentFailed publishes a payment.failed event.
func (p *Producer) PublishPaymentFailed(ctx context.Context, rec *domain.PaymentRecord, reason string) error {
	if p.kafka == nil {
		return nil
	}

	data := PaymentFailedData{
		IntentID:      rec.ID,
		Provider:      rec.Provider,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		FailureReason: reason,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentFailed, rec.ID, AggregateTypePayment, SourcePaymentGateway, data)
	if err != nil {
		return fmt.Errorf("create payment.failed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentFailed, event); err != nil {
		return fmt.Errorf("publish payment.failed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.failed event",
		slog.String("intent_id", rec.ID),
		slog.String("failure_reason", reason),
	)

	return nil
}

// PublishPaymentRefunded publishes a payment.refunded event.
func (p *Producer) PublishPaymentRefunded(ctx context.Context, refund *gateway.Refund) error {
	if p.kafka == nil {
		return nil
	}

	data := PaymentRefundedData{
		IntentID:     refund.PaymentIntentID,
		RefundID:     refund.ID,
		Provider:     string(refund.Provider),
		RefundAmount: refund.Amount,
		Currency:     refund.Currency,
		Reason:       refund.Reason,
		Status:       refund.Status,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentRefunded, refund.PaymentIntentID, AggregateTypePayment, SourcePaymentGateway, data)
	if err != nil {
		return fmt.Errorf("create payment.refunded event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentRefunded, event); err != nil {
		return fmt.Errorf("publish payment.refunded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published payment.refunded event",
		slog.String("intent_id", refund.PaymentIntentID),
		slog.String("refund_id", refund.ID),
	)

	return nil
}
