// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go            — Handler с DI (репозитории, orchestrator, hub, logger)
//   - routes.go             — регистрация маршрутов
//   - middleware.go         — middleware (logging, recovery)
//   - response.go           — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                — Data Transfer Objects (request/response)
//   - workflow_handler.go   — обработчики для /workflows
//   - execution_handler.go  — обработчики для /executions
//   - schedule_handler.go   — обработчики для /schedules
//   - events_handler.go     — websocket-стрим событий execution
//
// API предоставляет REST endpoints для управления workflows,
// executions и schedules, плюс websocket для live-событий.
package api
