package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HarshMishra-Git/Only-Thing-sub001/internal/domain"
	apperrors "github.com/HarshMishra-Git/Only-Thing-sub001/pkg/errors"
)

// DBTX is the subset of pgxpool.Pool the repository uses. pgxmock satisfies
// it, so tests run against the same code paths.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PaymentRecordRepository implements repository.PaymentRecordRepository on PostgreSQL.
type PaymentRecordRepository struct {
	db DBTX
}

// NewPaymentRecordRepository creates a PostgreSQL-backed record repository.
func NewPaymentRecordRepository(db DBTX) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

// Create inserts a new payment record.
func (r *PaymentRecordRepository) Create(ctx context.Context, rec *domain.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (id, provider, amount, currency, status, country, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.Provider,
		rec.Amount,
		rec.Currency,
		rec.Status,
		rec.Country,
		rec.Description,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment record: %w", err)
	}

	return nil
}

// GetByID retrieves a payment record by the provider intent/order id.
func (r *PaymentRecordRepository) GetByID(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	query := `
		SELECT id, provider, amount, currency, status, country, description, created_at, updated_at
		FROM payment_records
		WHERE id = $1`

	var rec domain.PaymentRecord
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Provider,
		&rec.Amount,
		&rec.Currency,
		&rec.Status,
		&rec.Country,
		&rec.Description,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payment record", id)
		}
		return nil, fmt.Errorf("select payment record: %w", err)
	}

	return &rec, nil
}

// UpdateStatus sets the tracked status for a record.
func (r *PaymentRecordRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE payment_records
		SET status = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update payment record status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("payment record", id)
	}

	return nil
}
