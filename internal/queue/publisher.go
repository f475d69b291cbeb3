package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the durable queue bound to every booking event.
const DefaultQueue = "slot.bookings"

// DialTimeout bounds connecting to the broker when the publishing context
// carries no deadline.
const DialTimeout = 10 * time.Second

// Publisher sends BookingEvents to a durable topic exchange.  The connection
// is dialled lazily and re-dialled after a failure, so a broker outage never
// blocks startup.  Publish is safe for concurrent use and gives up when its
// context ends, including while waiting for another publish or a dial.
type Publisher struct {
	url      string
	exchange string
	queue    string
	logger   *slog.Logger

	sem  chan struct{} // guards conn and ch
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a Publisher for the given broker URL and exchange.
// queue names the durable queue bound on connect; empty selects
// DefaultQueue.
func NewPublisher(url, exchange, queue string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{url: url, exchange: exchange, queue: queue, logger: logger, sem: make(chan struct{}, 1)}
}

func (p *Publisher) lock(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) unlock() { <-p.sem }

// Publish marshals ev and publishes it with the event type as routing key.
// Messages are marked persistent.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.lock(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	defer p.unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// channel returns an open channel, dialling and declaring the topology on
// first use.  The dial and the AMQP handshake end by ctx's deadline.  The
// lock must be held.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      contextDialer(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareTopology(ch, p.exchange, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	p.logger.Info("rabbitmq publisher connected", "exchange", p.exchange)
	return ch, nil
}

// contextDialer connects within ctx and leaves the connection deadline at
// ctx's deadline so a broker that accepts TCP but never speaks AMQP cannot
// stall the handshake.  The client clears the deadline once the handshake
// completes.
func contextDialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(DialTimeout)
		}
		d := net.Dialer{Deadline: deadline}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.sem <- struct{}{}
	defer p.unlock()
	p.reset()
	return nil
}

// declareTopology declares the durable exchange and queue and binds the
// queue to every slot.booking.* routing key.  Declarations are idempotent.
func declareTopology(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, "slot.booking.*", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}
