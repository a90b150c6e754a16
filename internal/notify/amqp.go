package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/safar/go-order-payments/internal/models"
)

const exchangeType = "topic"

// paymentOutcomeEvent is the wire shape published for downstream consumers
// (email notification, analytics). No card data ever appears here; the token
// is opaque and is still omitted.
type paymentOutcomeEvent struct {
	OrderID       int64     `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	CustomerID    int64     `json:"customer_id"`
	Status        string    `json:"status"`
	Success       bool      `json:"success"`
	AttemptsMade  int       `json:"attempts_made"`
	TransactionID string    `json:"transaction_id,omitempty"`
	FailureCode   string    `json:"failure_code,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AMQPNotifier publishes payment outcomes to a topic exchange. Publishing is
// fire-and-forget: errors are logged and dropped, never surfaced to the
// payment engine.
type AMQPNotifier struct {
	ch       *amqp.Channel
	exchange string
}

// Dial connects, opens a channel, and declares the exchange. A few
// connection retries cover broker startup in container environments.
func Dial(url, exchange string) (*AMQPNotifier, func(), error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		slog.Warn("amqp connect failed, retrying", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,     // name
		exchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}

	cleanup := func() {
		ch.Close()
		conn.Close()
	}

	return &AMQPNotifier{ch: ch, exchange: exchange}, cleanup, nil
}

func (n *AMQPNotifier) PaymentOutcome(ctx context.Context, order *models.Order, result *models.PaymentResult) {
	event := paymentOutcomeEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		Status:        string(order.Status),
		Success:       result.Success,
		AttemptsMade:  result.AttemptsMade,
		TransactionID: result.TransactionID,
		FailureCode:   order.FailureCode,
		OccurredAt:    time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		slog.WarnContext(ctx, "marshal payment outcome event", "order_id", order.ID, "error", err)
		return
	}

	// Routing key: payment.<succeeded|failed>
	routingKey := "payment.failed"
	if result.Success {
		routingKey = "payment.succeeded"
	}

	err = n.ch.PublishWithContext(ctx,
		n.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		slog.WarnContext(ctx, "publish payment outcome event", "order_id", order.ID, "error", err)
	}
}
