package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type StatsProvider func() map[string]any

// MetricsServer exposes /metrics for Prometheus and /debug/stats as JSON.
type MetricsServer struct {
	log           *slog.Logger
	address       string
	gatherer      prometheus.Gatherer
	statsProvider StatsProvider
}

func NewMetricsServer(log *slog.Logger, address string, gatherer prometheus.Gatherer, statsProvider StatsProvider) *MetricsServer {
	return &MetricsServer{log: log, address: address, gatherer: gatherer, statsProvider: statsProvider}
}

func (s *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/stats", func(w http.ResponseWriter, r *http.Request) {
		data := make(map[string]any)
		if s.statsProvider != nil {
			data = s.statsProvider()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(data)
	})
	return mux
}

// Run serves until ctx is canceled.
func (s *MetricsServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting metrics server", "address", s.address)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
