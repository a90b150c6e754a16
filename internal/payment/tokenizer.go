package payment

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-order-payments/internal/models"
)

// Tokenizer exchanges a validated card for an opaque vault token, simulating
// a configurable rejection rate. math/rand/v2's top-level functions draw from
// a per-thread source, so concurrent tokenizations do not contend on a lock.
type Tokenizer struct {
	rejectPercent int
	now           func() time.Time
	roll          func() int
}

func NewTokenizer(rejectPercent int) *Tokenizer {
	return &Tokenizer{
		rejectPercent: rejectPercent,
		now:           time.Now,
		roll:          func() int { return rand.IntN(100) },
	}
}

// NewTokenizerWithRoll injects the outcome roll and clock, making rejection
// deterministic in tests. roll must return values in [0, 100).
func NewTokenizerWithRoll(rejectPercent int, roll func() int, now func() time.Time) *Tokenizer {
	return &Tokenizer{rejectPercent: rejectPercent, now: now, roll: roll}
}

// Tokenize validates the card, draws the simulated vault outcome, and on
// success scrubs the CVV from the caller's card value. The returned token
// carries no card data.
func (t *Tokenizer) Tokenize(card *models.CreditCard) (string, error) {
	if err := ValidateCard(card, t.now()); err != nil {
		return "", err
	}

	if t.roll() < t.rejectPercent {
		return "", &TokenizationError{Reason: "card rejected by token vault"}
	}

	card.CVV = ""
	return "tok_" + uuid.NewString(), nil
}
