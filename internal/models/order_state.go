package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusPaymentProcessing OrderStatus = "payment_processing"
	OrderStatusPaymentConfirmed  OrderStatus = "payment_confirmed"
	OrderStatusPaymentFailed     OrderStatus = "payment_failed"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
)

// ErrInvalidTransition is the errors.Is target for all state machine
// violations.
var ErrInvalidTransition = errors.New("invalid order state transition")

// InvalidTransitionError names the current status and the attempted event.
// It signals a broken caller contract and is never retried.
type InvalidTransitionError struct {
	OrderID int64
	From    OrderStatus
	Event   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %d: cannot %s from status %q", e.OrderID, e.Event, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// SetItems replaces the order's line items and recomputes the total. Items
// are immutable once the order has left pending.
func (o *Order) SetItems(items []OrderItem) error {
	if o.Status != OrderStatusPending {
		return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Event: "modify items"}
	}
	if len(items) == 0 {
		return errors.New("order must have at least one item")
	}
	o.Items = items
	o.RecalculateTotal()
	return nil
}

// RecalculateTotal derives the order total from its line items. The total is
// never set independently.
func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for i := range o.Items {
		o.Items[i].Subtotal = o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity)))
		total = total.Add(o.Items[i].Subtotal)
	}
	o.TotalAmount = total
}

// AssignPaymentToken moves the order from pending into payment_processing.
func (o *Order) AssignPaymentToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("payment token must not be blank")
	}
	if o.Status != OrderStatusPending {
		return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Event: "assign payment token"}
	}
	o.PaymentToken = token
	o.Status = OrderStatusPaymentProcessing
	return nil
}

// MarkPaymentConfirmed records a successful gateway attempt.
func (o *Order) MarkPaymentConfirmed(transactionID string, attempts int) error {
	if o.Status != OrderStatusPaymentProcessing {
		return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Event: "confirm payment"}
	}
	o.Status = OrderStatusPaymentConfirmed
	o.TransactionID = transactionID
	o.AttemptsMade = attempts
	return nil
}

// MarkPaymentFailed records a terminal payment failure. It is reachable from
// pending (tokenization rejected before a token was assigned) and from
// payment_processing (gateway retries exhausted or the wait was aborted).
func (o *Order) MarkPaymentFailed(code, reason string, attempts int) error {
	if o.Status != OrderStatusPending && o.Status != OrderStatusPaymentProcessing {
		return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Event: "fail payment"}
	}
	o.Status = OrderStatusPaymentFailed
	o.FailureCode = code
	o.FailureReason = reason
	o.AttemptsMade = attempts
	return nil
}

// MarkCompleted closes out a confirmed order after fulfillment.
func (o *Order) MarkCompleted() error {
	if o.Status != OrderStatusPaymentConfirmed {
		return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Event: "complete"}
	}
	o.Status = OrderStatusCompleted
	return nil
}

// Cancel transitions the order to cancelled. Completed and already-cancelled
// orders stay put.
func (o *Order) Cancel() error {
	switch o.Status {
	case OrderStatusPending, OrderStatusPaymentProcessing, OrderStatusPaymentConfirmed, OrderStatusPaymentFailed:
		o.Status = OrderStatusCancelled
		return nil
	default:
		return &InvalidTransitionError{OrderID: o.ID, From: o.Status, Event: "cancel"}
	}
}
