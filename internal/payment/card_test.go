package payment

import (
	"testing"
	"time"

	"github.com/safar/go-order-payments/internal/models"
)

var testNow = time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

func validCard() *models.CreditCard {
	return &models.CreditCard{
		Number:     "4242424242424242",
		CVV:        "123",
		ExpMonth:   12,
		ExpYear:    2027,
		HolderName: "Test Holder",
	}
}

func TestValidateCardAcceptsKnownGoodNumbers(t *testing.T) {
	for _, number := range []string{
		"4242424242424242",
		"4111111111111111",
		"5500005555555559",
		"4242 4242 4242 4242",
		"4242-4242-4242-4242",
	} {
		card := validCard()
		card.Number = number
		if err := ValidateCard(card, testNow); err != nil {
			t.Errorf("Card %q should validate: %v", number, err)
		}
	}
}

func TestValidateCardRejectsBadChecksum(t *testing.T) {
	card := validCard()
	card.Number = "4242424242424241"

	err := ValidateCard(card, testNow)
	if err == nil {
		t.Fatal("Expected checksum failure")
	}
	if _, ok := err.(*TokenizationError); !ok {
		t.Errorf("Expected TokenizationError, got %T", err)
	}
}

func TestValidateCardRejectsBadLength(t *testing.T) {
	card := validCard()
	card.Number = "42424242"
	if err := ValidateCard(card, testNow); err == nil {
		t.Error("Expected length failure")
	}
}

func TestValidateCardRejectsNonDigits(t *testing.T) {
	card := validCard()
	card.Number = "42424242424242ab"
	if err := ValidateCard(card, testNow); err == nil {
		t.Error("Expected failure for non-digit characters")
	}
}

func TestValidateCardExpiry(t *testing.T) {
	cases := []struct {
		name    string
		month   int
		year    int
		expired bool
	}{
		{"past year", 12, 2025, true},
		{"current month", 9, 2026, true},
		{"next month", 10, 2026, false},
		{"next year", 1, 2027, false},
	}

	for _, tc := range cases {
		card := validCard()
		card.ExpMonth = tc.month
		card.ExpYear = tc.year

		err := ValidateCard(card, testNow)
		if tc.expired && err == nil {
			t.Errorf("%s: expected expiry rejection", tc.name)
		}
		if !tc.expired && err != nil {
			t.Errorf("%s: expected valid card, got: %v", tc.name, err)
		}
	}
}

func TestValidateCardNil(t *testing.T) {
	if err := ValidateCard(nil, testNow); err == nil {
		t.Error("Expected error for nil card")
	}
}
