// Navigata Orchestrator — выполняет workflows.
//
// Orchestrator:
//   - Получает новые executions из RabbitMQ (плюс polling fallback)
//   - Запускает browser-сессию и диспетчеризует шаги workflow
//   - Ведёт журнал, агрегирует результаты и учитывает токены LLM
//   - Финализирует executions и рассылает события
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Navigata/internal/browser"
	"github.com/shaiso/Navigata/internal/events"
	"github.com/shaiso/Navigata/internal/gateway"
	"github.com/shaiso/Navigata/internal/mq"
	"github.com/shaiso/Navigata/internal/orchestrator"
	"github.com/shaiso/Navigata/internal/repo"
	"github.com/shaiso/Navigata/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting navigata-orchestrator")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	store := repo.NewStore(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// LLM gateway
	gw := gateway.New(gateway.Config{
		Provider: tokenProvider(),
		Model:    os.Getenv("GATEWAY_MODEL"),
		BaseURL:  os.Getenv("GATEWAY_BASE_URL"),
		Logger:   logger,
	})

	// Broadcaster: локальный hub + зеркало в RabbitMQ
	hub := events.NewHub()
	defer hub.Close()

	broadcaster := events.Multi{hub}
	if mqConn != nil {
		broadcaster = append(broadcaster, mq.NewEventMirror(mqConn, logger))
	}

	// Создаём orchestrator
	orch := orchestrator.New(orchestrator.Config{
		Store:       store,
		Launcher:    browser.NewChromeLauncher(gw, logger),
		Broadcaster: broadcaster,
		Rates:       orchestrator.RatesFromEnv(),
		Publisher:   publisher,
		Conn:        mqConn,
		Logger:      logger,
	})

	// Запускаем orchestrator
	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ORCH_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем orchestrator
	orch.Stop()
	logger.Info("navigata-orchestrator stopped")
}

// tokenProvider выбирает провайдер токена: внешняя команда из
// GATEWAY_TOKEN_COMMAND или статический токен из GATEWAY_TOKEN.
func tokenProvider() gateway.TokenProvider {
	if p := gateway.NewCommandProviderFromEnv(); p != nil {
		return p
	}
	return &gateway.StaticProvider{
		Token:   os.Getenv("GATEWAY_TOKEN"),
		BaseURL: os.Getenv("GATEWAY_BASE_URL"),
	}
}
