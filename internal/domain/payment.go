package domain

import (
	"time"
)

// Payment record status constants. These track the record locally; the
// authoritative status always lives at the provider.
const (
	PaymentStatusCreated   = "created"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// PaymentRecord pins a provider-minted payment intent to the provider that
// minted it. Persisting the pairing lets refunds route by lookup instead of
// by guessing from the id shape.
type PaymentRecord struct {
	// ID is the provider's intent/order id (e.g. "pi_..." or "order_...").
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Country     string    `json:"country,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidPaymentStatuses returns all valid record statuses.
func ValidPaymentStatuses() []string {
	return []string{
		PaymentStatusCreated,
		PaymentStatusSucceeded,
		PaymentStatusFailed,
		PaymentStatusRefunded,
	}
}

// IsValidPaymentStatus checks whether the given status is a valid record status.
func IsValidPaymentStatus(status string) bool {
	for _, s := range ValidPaymentStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
