// Navigata API — HTTP API для управления workflows, executions и
// schedules.
//
// API не выполняет workflows сам: запуск создаёт execution в статусе
// QUEUED и передаёт его оркестратору через RabbitMQ (или через polling,
// если RabbitMQ недоступен).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/Navigata/internal/api"
	"github.com/shaiso/Navigata/internal/events"
	"github.com/shaiso/Navigata/internal/mq"
	"github.com/shaiso/Navigata/internal/orchestrator"
	"github.com/shaiso/Navigata/internal/repo"
	"github.com/shaiso/Navigata/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "navigata_api_http_requests_total",
		Help: "Total HTTP requests handled by navigata_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting navigata-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	workflowRepo := repo.NewWorkflowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)
	store := repo.NewStore(pool)

	// RabbitMQ — опционально
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, executions will be picked up by polling", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Hub для websocket-подписчиков
	hub := events.NewHub()
	defer hub.Close()

	// Relay переносит события executions из RabbitMQ в hub: без него
	// websocket-наблюдатели API видели бы только события control-plane,
	// а не прогресс выполнения в процессе оркестратора.
	if mqConn != nil {
		relay := mq.NewEventRelay(mqConn, hub, logger)
		defer relay.Stop()
		go func() {
			if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event relay stopped", "error", err)
			}
		}()
	}

	// Control-plane оркестратор: создаёт executions и маршрутизирует
	// cancel, но не выполняет workflows (Start не вызывается).
	orch := orchestrator.New(orchestrator.Config{
		Store:       store,
		Broadcaster: hub,
		Rates:       orchestrator.RatesFromEnv(),
		Publisher:   publisher,
		Logger:      logger,
	})

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		WorkflowRepo:  workflowRepo,
		ExecutionRepo: executionRepo,
		ScheduleRepo:  scheduleRepo,
		Orchestrator:  orch,
		Hub:           hub,
		Logger:        logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
