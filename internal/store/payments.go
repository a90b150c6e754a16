package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-order-payments/internal/database"
	"github.com/safar/go-order-payments/internal/models"
)

// PaymentStore persists order payment-state transitions for the retry
// engine. Every call is one short-lived, immediately committed transaction,
// so the engine's inter-attempt wait never holds a connection or row lock.
type PaymentStore struct {
	DB *sql.DB
}

// SaveOrderState writes the order's current status, token, transaction id,
// attempt count, and failure fields. Last-write-wins on content: repeating
// the call with an unchanged order leaves the row in the same final state.
func (s *PaymentStore) SaveOrderState(ctx context.Context, order *models.Order) error {
	return database.Write(ctx, s.DB, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1,
			     payment_token = NULLIF($2, ''),
			     transaction_id = NULLIF($3, ''),
			     attempts_made = $4,
			     failure_code = NULLIF($5, ''),
			     failure_reason = NULLIF($6, ''),
			     updated_at = NOW(),
			     version = version + 1
			 WHERE id = $7`,
			order.Status,
			order.PaymentToken,
			order.TransactionID,
			order.AttemptsMade,
			order.FailureCode,
			order.FailureReason,
			order.ID)
		if err != nil {
			return fmt.Errorf("save order state: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return database.ErrOrderNotFound
		}

		return nil
	})
}
