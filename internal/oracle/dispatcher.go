package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// AMQPDispatcher publishes decryption requests to the oracle queue. The
// external worker consumes the queue, decrypts off-band, and invokes the
// callback endpoint with a proof.
type AMQPDispatcher struct {
	channel *amqp.Channel
	queue   string
}

// Connect dials the broker and opens a channel for dispatching.
func Connect(uri, queue string) (*amqp.Connection, *AMQPDispatcher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return conn, &AMQPDispatcher{channel: ch, queue: queue}, nil
}

// Dispatch hands the request to the broker. It returns as soon as the message
// is published; delivery to the oracle and the callback are asynchronous.
func (d *AMQPDispatcher) Dispatch(ctx context.Context, req *models.OracleRequest) error {
	if _, err := d.channel.QueueDeclare(d.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal oracle request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = d.channel.PublishWithContext(ctx,
		"",
		d.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish oracle request: %w", err)
	}

	return nil
}

// Consume opens a delivery stream on the oracle queue for the worker side.
func Consume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return deliveries, nil
}
