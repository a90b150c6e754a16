package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func pendingOrder() *Order {
	o := &Order{ID: 42, CustomerID: 1, Status: OrderStatusPending}
	o.SetItems([]OrderItem{
		{ProductID: 10, Quantity: 3, UnitPrice: decimal.NewFromInt(100)},
		{ProductID: 11, Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
	})
	return o
}

func TestSetItemsRecalculatesTotal(t *testing.T) {
	o := pendingOrder()

	expected := decimal.NewFromInt(350)
	if !o.TotalAmount.Equal(expected) {
		t.Errorf("Expected total %s, got %s", expected, o.TotalAmount)
	}

	if !o.Items[0].Subtotal.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected first item subtotal 300, got %s", o.Items[0].Subtotal)
	}
}

func TestSetItemsRequiresAtLeastOne(t *testing.T) {
	o := &Order{Status: OrderStatusPending}
	if err := o.SetItems(nil); err == nil {
		t.Error("Expected error for empty items")
	}
}

func TestSetItemsRejectedAfterPending(t *testing.T) {
	o := pendingOrder()
	if err := o.AssignPaymentToken("tok_abc"); err != nil {
		t.Fatalf("Assign token: %v", err)
	}

	err := o.SetItems([]OrderItem{{ProductID: 10, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected invalid transition, got: %v", err)
	}
}

func TestPaymentLifecycleHappyPath(t *testing.T) {
	o := pendingOrder()

	if err := o.AssignPaymentToken("tok_abc"); err != nil {
		t.Fatalf("Assign token: %v", err)
	}
	if o.Status != OrderStatusPaymentProcessing {
		t.Errorf("Expected payment_processing, got %s", o.Status)
	}

	if err := o.MarkPaymentConfirmed("txn_1", 2); err != nil {
		t.Fatalf("Confirm payment: %v", err)
	}
	if o.Status != OrderStatusPaymentConfirmed {
		t.Errorf("Expected payment_confirmed, got %s", o.Status)
	}
	if o.AttemptsMade != 2 {
		t.Errorf("Expected 2 attempts, got %d", o.AttemptsMade)
	}
	if o.TransactionID != "txn_1" {
		t.Errorf("Expected transaction id recorded, got %q", o.TransactionID)
	}

	if err := o.MarkCompleted(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if o.Status != OrderStatusCompleted {
		t.Errorf("Expected completed, got %s", o.Status)
	}
}

func TestAssignPaymentTokenBlank(t *testing.T) {
	o := pendingOrder()
	if err := o.AssignPaymentToken("   "); err == nil {
		t.Error("Expected error for blank token")
	}
	if o.Status != OrderStatusPending {
		t.Errorf("Status should stay pending, got %s", o.Status)
	}
}

func TestAssignPaymentTokenFromWrongStatus(t *testing.T) {
	o := pendingOrder()
	o.AssignPaymentToken("tok_abc")

	err := o.AssignPaymentToken("tok_other")
	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("Expected InvalidTransitionError, got: %v", err)
	}
	if transitionErr.From != OrderStatusPaymentProcessing {
		t.Errorf("Expected from=payment_processing, got %s", transitionErr.From)
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("Expected errors.Is match on ErrInvalidTransition")
	}
}

func TestMarkPaymentFailedFromPending(t *testing.T) {
	o := pendingOrder()

	if err := o.MarkPaymentFailed("tokenization_rejected", "card is expired", 0); err != nil {
		t.Fatalf("Fail payment: %v", err)
	}
	if o.Status != OrderStatusPaymentFailed {
		t.Errorf("Expected payment_failed, got %s", o.Status)
	}
	if o.AttemptsMade != 0 {
		t.Errorf("Expected 0 attempts, got %d", o.AttemptsMade)
	}
}

func TestMarkPaymentFailedFromProcessing(t *testing.T) {
	o := pendingOrder()
	o.AssignPaymentToken("tok_abc")

	if err := o.MarkPaymentFailed("gateway_exhausted", "card declined by issuer", 3); err != nil {
		t.Fatalf("Fail payment: %v", err)
	}
	if o.AttemptsMade != 3 {
		t.Errorf("Expected 3 attempts, got %d", o.AttemptsMade)
	}
	if o.FailureCode != "gateway_exhausted" {
		t.Errorf("Expected failure code recorded, got %q", o.FailureCode)
	}
}

func TestMarkPaymentFailedFromTerminalStatus(t *testing.T) {
	o := pendingOrder()
	o.AssignPaymentToken("tok_abc")
	o.MarkPaymentConfirmed("txn_1", 1)

	if err := o.MarkPaymentFailed("gateway_exhausted", "late failure", 3); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected invalid transition, got: %v", err)
	}
}

func TestCancelAllowedStatuses(t *testing.T) {
	for _, status := range []OrderStatus{
		OrderStatusPending,
		OrderStatusPaymentProcessing,
		OrderStatusPaymentConfirmed,
		OrderStatusPaymentFailed,
	} {
		o := &Order{Status: status}
		if err := o.Cancel(); err != nil {
			t.Errorf("Cancel from %s: %v", status, err)
		}
		if o.Status != OrderStatusCancelled {
			t.Errorf("Expected cancelled from %s, got %s", status, o.Status)
		}
	}
}

func TestCancelBlockedStatuses(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusCompleted, OrderStatusCancelled} {
		o := &Order{Status: status}
		if err := o.Cancel(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Expected invalid transition from %s, got: %v", status, err)
		}
		if o.Status != status {
			t.Errorf("Status should stay %s, got %s", status, o.Status)
		}
	}
}

func TestMarkCompletedRequiresConfirmedPayment(t *testing.T) {
	o := pendingOrder()
	if err := o.MarkCompleted(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected invalid transition, got: %v", err)
	}
}
