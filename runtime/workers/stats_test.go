package workers

import (
	"chatterm/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStatsWorker_ReportsProcessRSS(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	monitoring := observability.NewMonitoring(reg)
	worker := NewStatsWorker(logs.GetLoggerFromLevel(slog.LevelDebug), monitoring, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// Given the worker ran a few ticks
	req.NoError(worker.Run(ctx))

	// Then the RSS gauge was fed
	count, err := testutil.GatherAndCount(reg, "chatterm_process_rss_bytes")
	req.NoError(err)
	req.Equal(1, count)

	families, err := reg.Gather()
	req.NoError(err)
	for _, f := range families {
		if f.GetName() == "chatterm_process_rss_bytes" {
			req.Greater(f.GetMetric()[0].GetGauge().GetValue(), float64(0))
		}
	}
}
