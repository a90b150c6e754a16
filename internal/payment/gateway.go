package payment

import (
	"context"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/safar/go-order-payments/internal/models"
	"github.com/shopspring/decimal"
)

// Outcome is the result of one gateway attempt: either accepted with a
// transaction id, or rejected with a reason. Gateway rejections are value
// outcomes, not errors; errors are reserved for broken contracts.
type Outcome struct {
	Accepted      bool
	TransactionID string
	Reason        string
}

// Gateway submits one charge attempt. Implementations must not retry
// internally; the engine owns the retry budget.
type Gateway interface {
	Charge(ctx context.Context, order *models.Order, token string, amount decimal.Decimal) Outcome
}

// SimulatedGateway approves or declines charges by drawing against a
// configured rejection percentage.
type SimulatedGateway struct {
	rejectPercent int
	roll          func() int
}

func NewSimulatedGateway(rejectPercent int) *SimulatedGateway {
	return &SimulatedGateway{
		rejectPercent: rejectPercent,
		roll:          func() int { return rand.IntN(100) },
	}
}

// NewSimulatedGatewayWithRoll injects the outcome roll for deterministic
// tests. roll must return values in [0, 100).
func NewSimulatedGatewayWithRoll(rejectPercent int, roll func() int) *SimulatedGateway {
	return &SimulatedGateway{rejectPercent: rejectPercent, roll: roll}
}

func (g *SimulatedGateway) Charge(ctx context.Context, order *models.Order, token string, amount decimal.Decimal) Outcome {
	if g.roll() < g.rejectPercent {
		return Outcome{Reason: "card declined by issuer"}
	}
	return Outcome{Accepted: true, TransactionID: "txn_" + uuid.NewString()}
}
