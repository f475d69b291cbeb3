package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditConsumer drains the booking queue and appends one line per event to
// an audit log.
type AuditConsumer struct {
	URL      string
	Exchange string
	Queue    string
	Out      io.Writer
	Logger   *slog.Logger
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures trigger a reconnect with exponential backoff capped at 30s;
// malformed messages are logged and rejected without requeue so the loop
// keeps going.
func (c *AuditConsumer) Run(ctx context.Context) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queue := c.Queue
	if queue == "" {
		queue = DefaultQueue
	}

	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			logger.Warn("booking-consumer: failed to dial broker", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn, queue, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("booking-consumer: consume loop ended; reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, logger *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("booking-consumer: set QoS failed", "err", err)
	}
	if err := declareTopology(ch, c.Exchange, queue); err != nil {
		return err
	}

	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := WriteAuditLine(c.Out, d.Body); err != nil {
				logger.Error("booking-consumer: handle message failed", "err", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// WriteAuditLine decodes a BookingEvent and writes it to w as a single
// human readable line.
func WriteAuditLine(w io.Writer, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.BookingID == "" {
		return errors.New("event missing type or booking_id")
	}
	action := "Booking confirmed"
	if ev.Type == EventBookingCancelled {
		action = "Booking cancelled"
	}
	customer := ev.CustomerID
	if customer == "" {
		customer = "-"
	}
	line := fmt.Sprintf("[%s] %s | booking_id=%s | order_id=%s | customer_id=%s | store_id=%d | slot_id=%d | date=%s | window=%s-%s | remaining=%d\n",
		ev.OccurredAt, action, ev.BookingID, ev.OrderID, customer, ev.StoreID, ev.SlotID, ev.Date, ev.StartTime, ev.EndTime, ev.Remaining)
	if _, err := io.WriteString(w, line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
