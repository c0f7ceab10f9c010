package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Результаты обработчика, управляющие подтверждением.
var (
	// ErrMalformed — сообщение никогда не будет обработано; ack и drop.
	ErrMalformed = errors.New("mq: malformed message")

	// ErrRequeue — обработка не начиналась; вернуть в очередь.
	ErrRequeue = errors.New("mq: requeue message")
)

// Handler — функция обработки сообщения.
//
// nil — ack. ErrMalformed — ack без повторов. ErrRequeue — nack с
// возвратом в очередь. Любая другая ошибка — nack без возврата (DLQ).
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	// Message — распарсенный конверт.
	Message Message

	// Body — payload сообщения в исходном виде.
	Body json.RawMessage
}

// disposition — что делать с сообщением после обработчика.
type disposition int

const (
	dispositionAck disposition = iota
	dispositionRequeue
	dispositionReject
)

func dispositionFor(err error) disposition {
	switch {
	case err == nil, errors.Is(err, ErrMalformed):
		return dispositionAck
	case errors.Is(err, ErrRequeue):
		return dispositionRequeue
	default:
		return dispositionReject
	}
}

// Consumer потребляет сообщения из очереди RabbitMQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество сообщений для предварительной загрузки.
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start запускает потребление сообщений и блокируется до отмены ctx.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	return c.consume(ctx)
}

// consume — основной цикл потребления.
func (c *Consumer) consume(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "error", err)
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consumer started")

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect")
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

func (c *Consumer) waitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		c.logger.Info("reconnected, restarting consumer")
		return nil
	}
}

// setupConsume настраивает канал и начинает потребление.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		"",      // consumer tag (auto-generated)
		false,   // auto-ack (ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// processDeliveries обрабатывает сообщения из канала.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.settle(raw, c.handle(ctx, raw.Body))
		}
	}
}

// handle разбирает конверт и вызывает обработчик.
func (c *Consumer) handle(ctx context.Context, body []byte) error {
	delivery, err := decodeDelivery(body)
	if err != nil {
		c.logger.Error("dropping malformed message", "error", err, "body_len", len(body))
		return err
	}

	logger := c.logger.With("message_id", delivery.Message.ID, "type", delivery.Message.Type)
	logger.Debug("received message")

	if err := c.handler(ctx, delivery); err != nil {
		logger.Error("handler failed", "error", err)
		return err
	}
	return nil
}

func (c *Consumer) settle(raw amqp.Delivery, err error) {
	var ackErr error
	switch dispositionFor(err) {
	case dispositionAck:
		ackErr = raw.Ack(false)
	case dispositionRequeue:
		ackErr = raw.Nack(false, true)
	case dispositionReject:
		ackErr = raw.Nack(false, false)
	}
	if ackErr != nil {
		c.logger.Warn("failed to settle message", "error", ackErr)
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// decodeDelivery разбирает конверт Message, сохраняя payload как JSON.
func decodeDelivery(body []byte) (*Delivery, error) {
	var env struct {
		Message
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	msg := env.Message
	msg.Payload = env.Payload
	return &Delivery{Message: msg, Body: env.Payload}, nil
}

// ParsePayload разбирает payload сообщения в указанный тип.
// Ошибка разбора оборачивает ErrMalformed.
func ParsePayload[T any](d *Delivery) (T, error) {
	var result T
	if len(d.Body) == 0 || string(d.Body) == "null" {
		return result, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	if err := json.Unmarshal(d.Body, &result); err != nil {
		return result, fmt.Errorf("%w: unmarshal payload: %v", ErrMalformed, err)
	}
	return result, nil
}
