// Package notification publishes order confirmation requests for the email
// collaborator.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/polkiloo/storefront/internal/domain/model"
)

// OrderConfirmed is the message consumed by the confirmation mailer.
type OrderConfirmed struct {
	OrderID       string          `json:"orderId"`
	UserID        int64           `json:"userId"`
	Total         string          `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	TransactionID string          `json:"transactionId,omitempty"`
	Items         []ConfirmedItem `json:"items"`
	Shipping      model.Shipping  `json:"shipping"`
	PaidAt        time.Time       `json:"paidAt"`
}

// ConfirmedItem is one purchased line.
type ConfirmedItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// NewOrderConfirmed builds the message for a paid order.
func NewOrderConfirmed(order *model.Order) OrderConfirmed {
	msg := OrderConfirmed{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Total:         order.Total.StringFixed(2),
		PaymentMethod: string(order.PaymentMethod),
		Shipping:      order.Shipping,
		PaidAt:        order.UpdatedAt.UTC(),
		Items:         make([]ConfirmedItem, 0, len(order.Items)),
	}
	if order.TransactionID != nil {
		msg.TransactionID = *order.TransactionID
	}
	for _, item := range order.Items {
		msg.Items = append(msg.Items, ConfirmedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Size:      item.Size,
			Color:     item.Color,
		})
	}
	return msg
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes confirmations keyed by order id, so redeliveries of
// one order land on the same partition.
type KafkaNotifier struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewKafkaNotifier creates a notifier writing to topic on brokers.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) *KafkaNotifier {
	return newKafkaNotifier(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}, logger)
}

func newKafkaNotifier(w messageWriter, logger *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: w, logger: logger, now: time.Now}
}

func (n *KafkaNotifier) OrderConfirmed(ctx context.Context, order *model.Order) error {
	data, err := json.Marshal(NewOrderConfirmed(order))
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}
	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.ID),
		Value: data,
		Time:  n.now().UTC(),
	}); err != nil {
		return fmt.Errorf("publish confirmation: %w", err)
	}
	n.logger.Info("order confirmation published", slog.String("order_id", order.ID))
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// LogNotifier records confirmations in the service log. It is used when no
// broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderConfirmed(_ context.Context, order *model.Order) error {
	n.logger.Info("order confirmation requested",
		slog.String("order_id", order.ID),
		slog.Int64("user_id", order.UserID),
		slog.String("total", order.Total.StringFixed(2)))
	return nil
}

func (n *LogNotifier) Close() error { return nil }
