package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck проверяет доступность зависимости (postgres, redis)
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// MetricsServer отдаёт /metrics, /healthz и /readyz
type MetricsServer struct {
	server *http.Server
	logger *zap.Logger
}

func NewMetricsServer(addr string, logger *zap.Logger, checks ...ReadinessCheck) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				logger.Warn("Readiness check failed", zap.String("check", check.Name), zap.Error(err))
				http.Error(w, check.Name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler нужен для тестов
func (m *MetricsServer) Handler() http.Handler {
	return m.server.Handler
}

// Start запускает сервер в отдельной горутине
func (m *MetricsServer) Start() {
	go func() {
		m.logger.Info("Metrics server listening", zap.String("addr", m.server.Addr))
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if err := m.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}
