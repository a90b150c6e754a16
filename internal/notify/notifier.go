package notify

import (
	"context"
	"log/slog"

	"github.com/safar/go-order-payments/internal/models"
)

// LogNotifier is the fallback when no message broker is configured: payment
// outcomes are written to the structured log and nowhere else.
type LogNotifier struct{}

func (LogNotifier) PaymentOutcome(ctx context.Context, order *models.Order, result *models.PaymentResult) {
	slog.InfoContext(ctx, "payment outcome",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"status", order.Status,
		"success", result.Success,
		"attempts", result.AttemptsMade,
		"transaction_id", result.TransactionID,
	)
}
