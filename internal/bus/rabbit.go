package bus

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/omni-commerce/internal/contracts"
)

// RabbitPublisher publishes envelopes to a fanout exchange so that every
// bound service queue receives its own copy.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, topic string) (*RabbitPublisher, error) {
	conn, ch, err := dialRabbit(url)
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(topic, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", topic, err)
	}

	return &RabbitPublisher{conn: conn, channel: ch, exchange: topic}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, key string, env contracts.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		"", // routing key unused by fanout
		false,
		false,
		amqp.Publishing{
			MessageId:    env.ID,
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.exchange, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.channel.Close()
	return p.conn.Close()
}

// RabbitConsumer reads from a durable queue bound to the topic exchange.
type RabbitConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewRabbitConsumer(url, topic, queue string) (*RabbitConsumer, error) {
	conn, ch, err := dialRabbit(url)
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(topic, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", topic, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, "", topic, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s to %s: %w", queue, topic, err)
	}

	return &RabbitConsumer{conn: conn, channel: ch, queue: queue}, nil
}

func (c *RabbitConsumer) Consume(ctx context.Context, handler MessageHandler) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			if err := handler(ctx, []byte(d.MessageId), d.Body); err != nil {
				log.Printf("[Bus] Error handling message %s: %v", d.MessageId, err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *RabbitConsumer) Close() error {
	c.channel.Close()
	return c.conn.Close()
}

// dialRabbit retries because RabbitMQ takes time to start in Docker.
func dialRabbit(url string) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < 10; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Printf("[Bus] Failed to connect to RabbitMQ, retrying in 2s... (%d/10)", i+1)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return conn, ch, nil
}
