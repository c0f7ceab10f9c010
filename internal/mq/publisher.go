package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/artwiki/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeWorkflowSubmitted MessageType = "workflow.submitted"
	MessageTypeWorkflowCompleted MessageType = "workflow.completed"
	MessageTypeJobCompleted      MessageType = "job.completed"
)

// Publisher публикует сообщения в RabbitMQ.
//
// Реализует orchestrator.Observer через JobFinished.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// WorkflowSubmittedPayload — workflow для асинхронного выполнения.
type WorkflowSubmittedPayload struct {
	WorkflowID uuid.UUID             `json:"workflow_id"`
	Steps      []domain.WorkflowStep `json:"steps"`
	Context    map[string]any        `json:"context,omitempty"`
}

// WorkflowCompletedPayload — итог асинхронного workflow.
type WorkflowCompletedPayload struct {
	WorkflowID uuid.UUID              `json:"workflow_id"`
	Failed     bool                   `json:"failed"`
	Result     *domain.WorkflowResult `json:"result"`
}

// JobCompletedPayload — событие о завершённом job.
type JobCompletedPayload struct {
	JobID      uuid.UUID  `json:"job_id"`
	TaskType   string     `json:"task_type"`
	Status     string     `json:"status"` // success или failed
	Error      string     `json:"error,omitempty"`
	TargetID   *uuid.UUID `json:"target_id,omitempty"`
	TargetType string     `json:"target_type,omitempty"`
	DurationMs int64      `json:"duration_ms"`
}

// NewJobCompletedPayload строит событие из завершённого job.
func NewJobCompletedPayload(job *domain.Job) JobCompletedPayload {
	p := JobCompletedPayload{
		JobID:      job.ID,
		TaskType:   job.TaskType,
		Status:     job.Status.String(),
		Error:      job.Error,
		DurationMs: job.Duration().Milliseconds(),
	}
	if job.Target != nil {
		id := job.Target.ID
		p.TargetID = &id
		p.TargetType = job.Target.Type
	}
	return p
}

func newMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishWorkflowSubmitted ставит workflow в очередь.
// Потребитель: worker.
func (p *Publisher) PublishWorkflowSubmitted(ctx context.Context, payload WorkflowSubmittedPayload) error {
	return p.Publish(ctx, ExchangeWorkflows, RoutingKeySubmitted,
		newMessage(MessageTypeWorkflowSubmitted, payload))
}

// PublishWorkflowCompleted публикует итог workflow.
func (p *Publisher) PublishWorkflowCompleted(ctx context.Context, payload WorkflowCompletedPayload) error {
	return p.Publish(ctx, ExchangeWorkflows, RoutingKeyCompleted,
		newMessage(MessageTypeWorkflowCompleted, payload))
}

// JobFinished публикует job.completed для завершённого job.
func (p *Publisher) JobFinished(ctx context.Context, job *domain.Job) error {
	return p.Publish(ctx, ExchangeJobs, RoutingKeyCompleted,
		newMessage(MessageTypeJobCompleted, NewJobCompletedPayload(job)))
}
