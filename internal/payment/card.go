package payment

import (
	"strings"
	"time"

	"github.com/safar/go-order-payments/internal/models"
)

// ValidateCard checks expiry and the card-number checksum. Failures here are
// deterministic: the same card fails the same way every time, so they are
// never retried.
func ValidateCard(card *models.CreditCard, now time.Time) error {
	if card == nil {
		return &TokenizationError{Reason: "no card provided"}
	}

	if card.ExpYear < now.Year() ||
		(card.ExpYear == now.Year() && card.ExpMonth <= int(now.Month())) {
		return &TokenizationError{Reason: "card is expired"}
	}

	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, card.Number)

	if len(digits) < 13 || len(digits) > 19 {
		return &TokenizationError{Reason: "card number has invalid length"}
	}

	if !luhnValid(digits) {
		return &TokenizationError{Reason: "card number failed checksum"}
	}

	return nil
}

// luhnValid reports whether digits passes the Luhn check. Any non-digit
// character fails the card outright.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
