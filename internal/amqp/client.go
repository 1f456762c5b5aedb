// Package amqp publishes fetch results to a RabbitMQ exchange.
package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/nv-h/gmail-debit-client/internal/core"
	applog "github.com/nv-h/gmail-debit-client/internal/log"
)

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp091.Channel the client needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Client struct {
	conn         *amqp091.Connection
	channel      channel
	exchangeName string
	queueName    string
	logger       *applog.Logger
}

func NewClient(url, exchangeName, queueName string, logger *applog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client, err := newClient(ch, exchangeName, queueName, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	client.conn = conn
	return client, nil
}

func newClient(ch channel, exchangeName, queueName string, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	client := &Client{
		channel:      ch,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(applog.ComponentAMQP),
	}
	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return client, nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange, routing key equals queue name
	err = c.channel.QueueBind(
		c.queueName,
		c.queueName,
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishRecordsFetched announces the records written to snapshotID.
func (c *Client) PublishRecordsFetched(ctx context.Context, snapshotID string, records []core.Transaction) error {
	msg := NewRecordsFetchedMessage(snapshotID, records)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Type:         EventRecordsFetched,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.InfoContext(ctx, "published records",
		applog.FieldOperation, applog.OpPublish,
		applog.FieldSnapshot, snapshotID,
		applog.FieldCount, len(records),
		applog.FieldExchange, c.exchangeName,
		applog.FieldQueue, c.queueName)

	return nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
