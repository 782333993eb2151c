package orchestrator

import (
	"os"
	"strconv"
	"sync"

	"github.com/shaiso/Navigata/internal/domain"
	"github.com/shaiso/Navigata/internal/gateway"
	"github.com/shaiso/Navigata/internal/telemetry"
)

// Ставки по умолчанию, долларов за 1000 токенов.
const (
	defaultPromptRate     = 0.003
	defaultCompletionRate = 0.015
)

// Accountant — учётчик токенов одного execution.
//
// Реализует gateway.Recorder: каждый успешный ответ gateway добавляет
// usage к накопленному и пересчитывает стоимость по линейным ставкам.
// Счётчики монотонны, сбросов в середине запуска нет. Потокобезопасен:
// в parallel-режиме usage пишут несколько шагов одновременно.
type Accountant struct {
	rates domain.CostRates

	mu    sync.Mutex
	usage domain.TokenUsage
}

// NewAccountant создаёт Accountant со ставками rates.
func NewAccountant(rates domain.CostRates) *Accountant {
	return &Accountant{rates: rates}
}

// RecordUsage добавляет usage одного ответа gateway.
func (a *Accountant) RecordUsage(u gateway.Usage) {
	a.mu.Lock()
	a.usage.Add(u.PromptTokens, u.CompletionTokens, a.rates)
	a.mu.Unlock()

	telemetry.TokensTotal.WithLabelValues("prompt").Add(float64(u.PromptTokens))
	telemetry.TokensTotal.WithLabelValues("completion").Add(float64(u.CompletionTokens))
}

// Usage возвращает накопленное потребление.
func (a *Accountant) Usage() domain.TokenUsage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage
}

// RatesFromEnv читает ставки стоимости из окружения.
//
// GATEWAY_COST_PROMPT_PER_1K / GATEWAY_COST_COMPLETION_PER_1K;
// отсутствующие или некорректные значения — дефолты.
func RatesFromEnv() domain.CostRates {
	rates := domain.CostRates{
		PromptPer1K:     defaultPromptRate,
		CompletionPer1K: defaultCompletionRate,
	}
	if v := os.Getenv("GATEWAY_COST_PROMPT_PER_1K"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			rates.PromptPer1K = f
		}
	}
	if v := os.Getenv("GATEWAY_COST_COMPLETION_PER_1K"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			rates.CompletionPer1K = f
		}
	}
	return rates
}
