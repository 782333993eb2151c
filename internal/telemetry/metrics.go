package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка выполнения.
var (
	// ExecutionsTotal — количество завершённых executions по статусу.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigata_executions_total",
		Help: "Completed executions by terminal status",
	}, []string{"status"})

	// StepDuration — длительность выполнения шагов по типу.
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "navigata_step_duration_seconds",
		Help:    "Step execution duration by step type",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	// GatewayAttempts — попытки запросов к LLM gateway по результату.
	// result: ok, unauthorized, failed
	GatewayAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigata_gateway_attempts_total",
		Help: "LLM gateway request attempts by result",
	}, []string{"result"})

	// TokensTotal — потреблённые токены LLM.
	// kind: prompt, completion
	TokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigata_tokens_total",
		Help: "LLM tokens consumed",
	}, []string{"kind"})
)
