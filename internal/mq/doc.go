// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий workflow и jobs
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - workflow.submitted — workflow поставлен в очередь на выполнение
//   - workflow.completed — workflow выполнен (успешно или с ошибкой шага)
//   - job.completed      — job завершён и сохранён
//
// Exchanges:
//   - artwiki.workflows — события workflow
//   - artwiki.jobs      — события jobs
//   - artwiki.dlq       — dead letter queue
package mq
