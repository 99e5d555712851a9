package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/reelhub/discovery/internal/config"
	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/pkg/logger"
)

const publishConfirmTimeout = 5 * time.Second

// publishChannel is the part of *amqp.Channel the publisher uses once the
// topology is declared.
type publishChannel interface {
	IsClosed() bool
	Close() error
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
}

// MessagePublisher publishes interaction events to a RabbitMQ topic exchange
// with publisher confirms. It implements InteractionLogger.
type MessagePublisher struct {
	conn    *amqp.Connection
	channel publishChannel
	config  *config.RabbitMQConfig
	mu      sync.Mutex
}

// NewMessagePublisher connects to RabbitMQ and declares the exchange, queue
// and binding.
func NewMessagePublisher(cfg *config.RabbitMQConfig) (*MessagePublisher, error) {
	mp := &MessagePublisher{
		config: cfg,
	}

	if err := mp.connect(); err != nil {
		return nil, err
	}

	return mp, nil
}

func (mp *MessagePublisher) connect() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		mp.config.User, mp.config.Password, mp.config.Host, mp.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := mp.declare(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	mp.conn = conn
	mp.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.config.Exchange),
		zap.String("queue", mp.config.Queue),
	)

	return nil
}

func (mp *MessagePublisher) declare(ch *amqp.Channel) error {
	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(
		mp.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		mp.config.Queue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		amqp.Table{
			"x-message-ttl": int32(7 * 24 * time.Hour / time.Millisecond),
			"x-max-length":  int32(1_000_000),
		},
	); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(
		mp.config.Queue,      // queue name
		mp.config.RoutingKey, // routing key
		mp.config.Exchange,   // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// LogInteraction publishes the interaction as JSON and waits for the broker
// to confirm it.
func (mp *MessagePublisher) LogInteraction(ctx context.Context, interaction *models.Interaction) error {
	body, err := json.Marshal(interaction)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}

	confirmation, err := mp.publish(ctx, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    interaction.CreatedAt,
		MessageId:    interaction.ID.String(),
		Type:         string(interaction.Type),
	})
	if err != nil {
		return err
	}

	// Wait outside the lock; the confirmation is bound to its own delivery tag.
	confirmCtx, cancel := context.WithTimeout(ctx, publishConfirmTimeout)
	defer cancel()

	acked, err := confirmation.WaitContext(confirmCtx)
	if err != nil {
		return fmt.Errorf("waiting for publish confirmation: %w", err)
	}
	if !acked {
		return errors.New("interaction was not acknowledged by broker")
	}

	logger.Log.Debug("Published interaction to RabbitMQ",
		zap.String("interactionId", interaction.ID.String()),
		zap.Int64("videoId", interaction.VideoID),
		zap.String("routingKey", mp.config.RoutingKey),
	)

	return nil
}

// publish hands msg to the channel. The lock covers only the channel check
// and the publish itself, which assigns the delivery tag.
func (mp *MessagePublisher) publish(ctx context.Context, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.channel == nil || mp.channel.IsClosed() {
		return nil, errors.New("channel is not initialized")
	}

	confirmation, err := mp.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		mp.config.Exchange,   // exchange
		mp.config.RoutingKey, // routing key
		false,                // mandatory
		false,                // immediate
		msg,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to publish interaction: %w", err)
	}
	return confirmation, nil
}

// Close closes the channel and the connection.
func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var errs []error
	if mp.channel != nil {
		if err := mp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if mp.conn != nil {
		if err := mp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing publisher: %w", err)
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection and channel are open.
func (mp *MessagePublisher) IsHealthy() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil && !mp.channel.IsClosed()
}
