package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	// DialTimeout bounds every connection attempt to the broker.
	DialTimeout = 2 * time.Second

	defaultBuffer  = 256
	publishTimeout = 5 * time.Second
)

var (
	ErrBufferFull      = errors.New("event buffer full")
	ErrPublisherClosed = errors.New("publisher closed")
)

func dial(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(DialTimeout),
	})
}

type outgoing struct {
	ev   Event
	body []byte
}

// AMQPPublisher publishes persistent JSON messages to a durable topic
// exchange. Publish only enqueues; one goroutine owns the connection and
// sends in order, reopening the connection after a failure. When the queue is
// full new events are dropped.
type AMQPPublisher struct {
	url      string
	exchange string
	logger   zerolog.Logger

	queue     chan outgoing
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// owned by run
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, exchange string, logger zerolog.Logger) *AMQPPublisher {
	p := newAMQPPublisher(url, exchange, defaultBuffer, logger)
	go p.run()
	return p
}

func newAMQPPublisher(url, exchange string, buffer int, logger zerolog.Logger) *AMQPPublisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &AMQPPublisher{
		url:      url,
		exchange: exchange,
		logger:   logger,
		queue:    make(chan outgoing, buffer),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Publish implements Publisher. It never blocks on the broker.
func (p *AMQPPublisher) Publish(_ context.Context, routingKey string, data interface{}) error {
	ev, err := NewEvent(routingKey, data)
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	select {
	case <-p.stop:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.queue <- outgoing{ev: ev, body: body}:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s", ErrBufferFull, routingKey)
	}
}

func (p *AMQPPublisher) run() {
	defer close(p.done)
	defer p.reset()
	for {
		select {
		case m := <-p.queue:
			p.deliver(m)
		case <-p.stop:
			// Flush what is queued; give up on the first failure.
			for {
				select {
				case m := <-p.queue:
					if !p.deliver(m) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (p *AMQPPublisher) deliver(m outgoing) bool {
	if err := p.send(m); err != nil {
		p.logger.Warn().Err(err).Str("event_id", m.ev.ID).Str("routing_key", m.ev.Type).Msg("event dropped")
		return false
	}
	p.logger.Debug().Str("event_id", m.ev.ID).Str("routing_key", m.ev.Type).Msg("event published")
	return true
}

func (p *AMQPPublisher) send(m outgoing) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx, p.exchange, m.ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    m.ev.ID,
		Type:         m.ev.Type,
		Timestamp:    m.ev.OccurredAt,
		Body:         m.body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", m.ev.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close stops accepting events, flushes the queue and closes the
// connection.
func (p *AMQPPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.stop) })
	<-p.done
	return nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}

// Handler processes one consumed event.
type Handler func(Event) error

// Tail binds a temporary queue to the exchange and passes every event
// matching bindingKey to handle until ctx is cancelled. Broker failures are
// logged and retried with exponential backoff capped at 30s.
func Tail(ctx context.Context, url, exchange, bindingKey string, handle Handler, logger zerolog.Logger) error {
	if exchange == "" {
		exchange = DefaultExchange
	}
	backoff := time.Second
	for {
		conn, err := dial(url)
		if err != nil {
			logger.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consume(ctx, conn, exchange, bindingKey, handle, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn().Err(err).Msg("consume loop ended, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func consume(ctx context.Context, conn *amqp.Connection, exchange, bindingKey string, handle Handler, logger zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareExchange(ch, exchange); err != nil {
		return err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := dispatch(d.Body, handle); err != nil {
				logger.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("handle event failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func dispatch(body []byte, handle Handler) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	return handle(ev)
}
