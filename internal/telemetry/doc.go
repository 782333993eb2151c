// Package telemetry — наблюдаемость системы.
//
//   - logging.go — structured logging через slog (формат и уровень
//     задаются переменными окружения)
//   - metrics.go — Prometheus метрики executions/steps/gateway
//
// Все сервисы настраивают логгер через SetupLogger и экспортируют
// метрики на своём /metrics endpoint.
package telemetry
