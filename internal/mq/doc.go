// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//   - event_relay.go — перенос событий executions из navigata.events в локальный hub
//
// Типы сообщений:
//   - execution.requested — новый execution ожидает выполнения
//   - execution.cancel    — запрос на отмену execution
//
// Exchanges:
//   - navigata.executions — команды executions (requested, cancel)
//   - navigata.events     — зеркало событий execution для внешних наблюдателей
//   - navigata.dlq        — dead letter queue
package mq
