// Package browser реализует browser-сессию для выполнения шагов workflow.
//
// Архитектура:
//   - Session — интерфейс одной эксклюзивной browser-сессии:
//     детерминированные операции (navigate, wait, screenshot, scroll,
//     evaluate) выполняются напрямую через chromedp; интеллектуальные
//     (act, extract, observe, agent) проходят через LLM gateway,
//     получая снимок страницы как контекст.
//   - Launcher — фабрика сессий: ровно одна сессия на execution,
//     закрытие идемпотентно.
//
// Используется: chromedp (управление Chrome по CDP), gateway (LLM).
package browser
