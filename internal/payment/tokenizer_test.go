package payment

import (
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time { return testNow }

func TestTokenizeSuccessScrubsCVV(t *testing.T) {
	tok := NewTokenizerWithRoll(0, func() int { return 0 }, fixedClock)

	card := validCard()
	token, err := tok.Tokenize(card)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	if !strings.HasPrefix(token, "tok_") {
		t.Errorf("Expected opaque tok_ prefix, got %q", token)
	}
	if strings.Contains(token, card.Number) {
		t.Error("Token must not embed the card number")
	}
	if card.CVV != "" {
		t.Error("CVV should be scrubbed after tokenization")
	}
}

func TestTokenizeRejection(t *testing.T) {
	tok := NewTokenizerWithRoll(100, func() int { return 99 }, fixedClock)

	_, err := tok.Tokenize(validCard())
	tokErr, ok := err.(*TokenizationError)
	if !ok {
		t.Fatalf("Expected TokenizationError, got: %v", err)
	}
	if tokErr.Reason == "" {
		t.Error("Rejection should carry a reason")
	}
}

func TestTokenizeValidationRunsBeforeRoll(t *testing.T) {
	rolled := false
	tok := NewTokenizerWithRoll(0, func() int { rolled = true; return 0 }, fixedClock)

	card := validCard()
	card.ExpYear = 2020

	if _, err := tok.Tokenize(card); err == nil {
		t.Fatal("Expected expiry rejection")
	}
	if rolled {
		t.Error("Validation failures must not consume a random draw")
	}
}

func TestTokenizeDistinctTokens(t *testing.T) {
	tok := NewTokenizerWithRoll(0, func() int { return 0 }, fixedClock)

	a, err := tok.Tokenize(validCard())
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	b, err := tok.Tokenize(validCard())
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if a == b {
		t.Error("Two tokenizations should yield distinct tokens")
	}
}
