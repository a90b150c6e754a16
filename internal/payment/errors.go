package payment

import "fmt"

// FailureCode distinguishes how a payment chain reached its terminal failure.
type FailureCode string

const (
	// FailureTokenizationRejected: the card never produced a token; zero
	// gateway attempts were made.
	FailureTokenizationRejected FailureCode = "tokenization_rejected"
	// FailureGatewayExhausted: every configured gateway attempt was rejected.
	FailureGatewayExhausted FailureCode = "gateway_exhausted"
	// FailureAborted: the caller cancelled during the retry wait, or an
	// isolated state write could not be committed.
	FailureAborted FailureCode = "aborted"
)

// TokenizationError is returned by the tokenizer for both deterministic
// validation failures and simulated vault rejections.
type TokenizationError struct {
	Reason string
}

func (e *TokenizationError) Error() string {
	return "tokenization failed: " + e.Reason
}

// PaymentError is the engine's single failure type. Lower-level tokenization,
// gateway, and persistence errors are always wrapped, never leaked directly.
type PaymentError struct {
	OrderID  int64
	Code     FailureCode
	Reason   string
	Attempts int
	cause    error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed for order %d (%s) after %d attempt(s): %s",
		e.OrderID, e.Code, e.Attempts, e.Reason)
}

func (e *PaymentError) Unwrap() error {
	return e.cause
}
