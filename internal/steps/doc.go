// Package steps реализует выполнение типизированных шагов workflow.
//
// Архитектура:
//   - Executor — интерфейс для типов шагов (navigate, act, extract,
//     observe, agent, wait, screenshot, scroll)
//   - Registry — реестр executors по типу шага
//   - Dispatcher — декодирует конфигурацию, диспатчит шаг и пишет
//     записи журнала вокруг выполнения
//
// Неизвестный тип шага — не ошибка: диспатчер пишет warning
// и пропускает шаг, не добавляя результат.
package steps
