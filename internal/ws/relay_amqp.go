package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPRelay fans envelopes out through a fanout exchange. Each instance
// consumes from its own exclusive, auto-deleted queue, so nothing is kept
// for instances that are down.
//
// A dropped broker connection is redialled lazily: the next Publish or
// Subscribe opens a fresh connection and redeclares the exchange. Events
// published while the broker is unreachable are lost.
type AMQPRelay struct {
	url      string
	exchange string

	// guards conn and pubCh; amqp channels are not safe for concurrent
	// publishing either
	mu     sync.Mutex
	conn   *amqp.Connection
	pubCh  *amqp.Channel
	closed bool
}

func NewAMQPRelay(url, exchange string) (*AMQPRelay, error) {
	r := &AMQPRelay{url: url, exchange: exchange}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.connectLocked(); err != nil {
		return nil, err
	}
	return r, nil
}

// connectLocked dials the broker and opens the publish channel when either
// is missing or closed. Callers hold r.mu.
func (r *AMQPRelay) connectLocked() error {
	if r.closed {
		return amqp.ErrClosed
	}
	if r.conn != nil && !r.conn.IsClosed() && r.pubCh != nil && !r.pubCh.IsClosed() {
		return nil
	}

	if r.conn == nil || r.conn.IsClosed() {
		conn, err := amqp.Dial(r.url)
		if err != nil {
			return fmt.Errorf("dial amqp: %w", err)
		}
		r.conn = conn
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(r.exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("declare exchange %s: %w", r.exchange, err)
	}
	r.pubCh = ch
	return nil
}

func (r *AMQPRelay) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.connectLocked(); err != nil {
		return err
	}
	err = r.pubCh.PublishWithContext(ctx, r.exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		// force a fresh channel on the next publish
		_ = r.pubCh.Close()
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Subscribe consumes until ctx is done or the connection drops. The hub
// calls it again after a failure, which redials.
func (r *AMQPRelay) Subscribe(ctx context.Context, fn func(Envelope)) error {
	r.mu.Lock()
	err := r.connectLocked()
	conn := r.conn
	r.mu.Unlock()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open amqp channel: %w", err)
	}
	defer ch.Close()

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", r.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr, ok := <-closed:
			if ok && amqpErr != nil {
				return fmt.Errorf("amqp connection closed: %w", amqpErr)
			}
			return errors.New("amqp connection closed")
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			var env Envelope
			if err := json.Unmarshal(d.Body, &env); err != nil {
				continue
			}
			fn(env)
		}
	}
}

func (r *AMQPRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.pubCh != nil {
		_ = r.pubCh.Close()
	}
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}
