package repository

import (
	"context"

	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/domain"
)

// PaymentRecordRepository persists the intent-id → provider pairing.
type PaymentRecordRepository interface {
	// Create inserts a new payment record.
	Create(ctx context.Context, record *domain.PaymentRecord) error

	// GetByID retrieves a payment record by the provider intent/order id.
	GetByID(ctx context.Context, id string) (*domain.PaymentRecord, error)

	// UpdateStatus sets the tracked status for a record.
	UpdateStatus(ctx context.Context, id, status string) error
}
