package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/safar/go-order-payments/internal/config"
	"github.com/safar/go-order-payments/internal/models"
)

// StateStore persists one order state transition per call, each call being
// its own immediately committed transaction. The engine only ever calls it
// between attempts, never across the retry wait, so no connection or lock is
// held while the engine sleeps. Writes are last-write-wins on status:
// repeating one with the same order content leaves the row unchanged.
type StateStore interface {
	SaveOrderState(ctx context.Context, order *models.Order) error
}

// Notifier receives terminal payment outcomes. Fire-and-forget: failures are
// logged by the engine and never affect the payment result.
type Notifier interface {
	PaymentOutcome(ctx context.Context, order *models.Order, result *models.PaymentResult)
}

// Auditor records lifecycle events. Same contract as Notifier: it can never
// fail the caller.
type Auditor interface {
	RecordEvent(ctx context.Context, eventType string, entityID int64, status, detail string)
}

// Engine drives a single payment attempt chain: tokenize if needed, assign
// the token, then loop bounded gateway attempts with a fixed delay between
// them. Each state transition is persisted as an isolated write. The engine
// is single-threaded per invocation; callers must not run two chains for the
// same order concurrently.
type Engine struct {
	store      StateStore
	gateway    Gateway
	tokenizer  *Tokenizer
	notifier   Notifier
	auditor    Auditor
	maxRetries int
	retryDelay time.Duration
}

// NewEngine wires the engine. notifier and auditor may be nil; side effects
// are then skipped.
func NewEngine(cfg config.PaymentConfig, store StateStore, gateway Gateway, tokenizer *Tokenizer, notifier Notifier, auditor Auditor) *Engine {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Engine{
		store:      store,
		gateway:    gateway,
		tokenizer:  tokenizer,
		notifier:   notifier,
		auditor:    auditor,
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Method is the payment instrument for one chain: a raw card to be
// tokenized, or a token from an earlier tokenization.
type Method struct {
	Card  *models.CreditCard
	Token string
}

// ProcessPayment runs the retry state machine for one order. It returns
// either a successful PaymentResult or a *PaymentError; lower-level
// tokenization, gateway, and persistence errors are always wrapped. An
// InvalidTransitionError from the order itself is a caller-contract
// violation and is returned as-is.
func (e *Engine) ProcessPayment(ctx context.Context, order *models.Order, method Method) (*models.PaymentResult, error) {
	token := method.Token
	if token == "" {
		var err error
		token, err = e.tokenizer.Tokenize(method.Card)
		if err != nil {
			return nil, e.failPayment(ctx, order, FailureTokenizationRejected, err.Error(), 0, err)
		}
	}

	if err := order.AssignPaymentToken(token); err != nil {
		return nil, err
	}
	if err := e.store.SaveOrderState(ctx, order); err != nil {
		return nil, e.abort(ctx, order, fmt.Errorf("persist token assignment: %w", err), 0)
	}

	var lastReason string
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		outcome := e.charge(ctx, order, token)

		if outcome.Accepted {
			if err := order.MarkPaymentConfirmed(outcome.TransactionID, attempt); err != nil {
				return nil, err
			}
			if err := e.store.SaveOrderState(ctx, order); err != nil {
				return nil, e.abort(ctx, order, fmt.Errorf("persist payment confirmation: %w", err), attempt)
			}

			result := &models.PaymentResult{
				Success:       true,
				TransactionID: outcome.TransactionID,
				AttemptsMade:  attempt,
			}
			e.emitOutcome(ctx, order, result)
			return result, nil
		}

		lastReason = outcome.Reason
		slog.InfoContext(ctx, "gateway attempt rejected",
			"order_id", order.ID, "attempt", attempt, "reason", outcome.Reason)

		if attempt < e.maxRetries {
			// The wait runs with no transaction or connection held; the
			// previous state write has already committed.
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				return nil, e.abort(ctx, order, ctx.Err(), attempt)
			}
		}
	}

	return nil, e.failPayment(ctx, order, FailureGatewayExhausted, lastReason, e.maxRetries, nil)
}

// charge runs one gateway attempt. A panic inside the gateway is confined to
// the attempt and counted as a rejection, so an unexpected failure never
// kills the retry loop.
func (e *Engine) charge(ctx context.Context, order *models.Order, token string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "gateway call panicked", "order_id", order.ID, "panic", r)
			outcome = Outcome{Reason: fmt.Sprintf("gateway error: %v", r)}
		}
	}()
	return e.gateway.Charge(ctx, order, token, order.TotalAmount)
}

// abort handles cancellation during the wait and unrecoverable persistence
// failures. The failure write runs on a context detached from the caller's
// cancellation so the terminal state still lands.
func (e *Engine) abort(ctx context.Context, order *models.Order, cause error, attempts int) error {
	writeCtx := context.WithoutCancel(ctx)
	return e.failPayment(writeCtx, order, FailureAborted, cause.Error(), attempts, cause)
}

func (e *Engine) failPayment(ctx context.Context, order *models.Order, code FailureCode, reason string, attempts int, cause error) error {
	if err := order.MarkPaymentFailed(string(code), reason, attempts); err != nil {
		slog.ErrorContext(ctx, "cannot mark order failed", "order_id", order.ID, "error", err)
	} else if err := e.store.SaveOrderState(ctx, order); err != nil {
		slog.ErrorContext(ctx, "persist payment failure", "order_id", order.ID, "error", err)
	}

	e.emitOutcome(ctx, order, &models.PaymentResult{AttemptsMade: attempts})

	return &PaymentError{
		OrderID:  order.ID,
		Code:     code,
		Reason:   reason,
		Attempts: attempts,
		cause:    cause,
	}
}

// emitOutcome fans the terminal outcome out to the notifier and auditor.
// Both are fire-and-forget; panics and slow failures there must never reach
// the payment result.
func (e *Engine) emitOutcome(ctx context.Context, order *models.Order, result *models.PaymentResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.WarnContext(ctx, "payment outcome side effect panicked", "order_id", order.ID, "panic", r)
		}
	}()

	if e.notifier != nil {
		e.notifier.PaymentOutcome(ctx, order, result)
	}
	if e.auditor != nil {
		detail := fmt.Sprintf("attempts=%d", result.AttemptsMade)
		if order.FailureReason != "" {
			detail += " reason=" + order.FailureReason
		}
		e.auditor.RecordEvent(ctx, "payment_outcome", order.ID, string(order.Status), detail)
	}
}
