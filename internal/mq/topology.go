package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeWorkflows Exchange = "artwiki.workflows"
	ExchangeJobs      Exchange = "artwiki.jobs"
	ExchangeDLQ       Exchange = "artwiki.dlq"
)

// Queues — имена очередей.
const (
	QueueWorkflowsSubmitted Queue = "workflows.submitted"
	QueueWorkflowsCompleted Queue = "workflows.completed"
	QueueJobsCompleted      Queue = "jobs.completed"
	QueueDLQWorkflows       Queue = "dlq.workflows"
)

// Routing keys.
const (
	RoutingKeySubmitted    RoutingKey = "submitted"
	RoutingKeyCompleted    RoutingKey = "completed"
	RoutingKeyDLQWorkflows RoutingKey = "workflows"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// topology — полное описание обменников, очередей и привязок.
type topology struct {
	exchanges []exchangeDecl
	queues    []queueDecl
	bindings  []bindingDecl
}

func defaultTopology() topology {
	// Аргументы для очередей с DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQWorkflows),
	}

	return topology{
		exchanges: []exchangeDecl{
			{ExchangeWorkflows, "direct"},
			{ExchangeJobs, "direct"},
			{ExchangeDLQ, "direct"},
		},
		queues: []queueDecl{
			// workflows.submitted — отклонённые сообщения уходят в DLQ
			{QueueWorkflowsSubmitted, dlqArgs},

			// события завершения — без DLQ
			{QueueWorkflowsCompleted, nil},
			{QueueJobsCompleted, nil},

			// dlq.workflows — сама DLQ очередь
			{QueueDLQWorkflows, nil},
		},
		bindings: []bindingDecl{
			{QueueWorkflowsSubmitted, RoutingKeySubmitted, ExchangeWorkflows},
			{QueueWorkflowsCompleted, RoutingKeyCompleted, ExchangeWorkflows},
			{QueueJobsCompleted, RoutingKeyCompleted, ExchangeJobs},
			{QueueDLQWorkflows, RoutingKeyDLQWorkflows, ExchangeDLQ},
		},
	}
}

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	t := defaultTopology()
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := t.declareExchanges(ch); err != nil {
			return err
		}
		if err := t.declareQueues(ch); err != nil {
			return err
		}
		return t.bindQueues(ch)
	})
}

func (t topology) declareExchanges(ch *amqp.Channel) error {
	for _, ex := range t.exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

func (t topology) declareQueues(ch *amqp.Channel) error {
	for _, q := range t.queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func (t topology) bindQueues(ch *amqp.Channel) error {
	for _, b := range t.bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  artwiki RabbitMQ topology:

    artwiki.workflows (direct)
    ├── workflows.submitted [routing: submitted]
    │       Consumer: worker
    │       DLQ: dlq.workflows
    └── workflows.completed [routing: completed]
            Consumer: external

    artwiki.jobs (direct)
    └── jobs.completed [routing: completed]
            Consumer: external

    artwiki.dlq (direct)
    └── dlq.workflows [routing: workflows]
            Manual processing
  `
}
