// Package orchestrator управляет выполнением executions.
//
// Orchestrator отвечает за:
//   - Получение новых executions из очереди RabbitMQ (event-driven)
//     и polling fallback по БД
//   - Жизненный цикл execution: QUEUED → RUNNING → терминальный статус
//   - Запуск эксклюзивной browser-сессии на execution и её
//     гарантированное однократное освобождение
//   - Диспатч шагов в sequential или parallel режиме
//   - Журнал execution: append, broadcast, персистенция
//   - Учёт потреблённых токенов LLM и оценку стоимости
//   - Отмену выполняющихся executions
//
// Orchestrator — это "мозг" системы, который координирует выполнение.
package orchestrator
