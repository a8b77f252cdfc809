// Package metrics records per-run counters and pushes them to a Prometheus
// Pushgateway. A one-shot job has no scrape surface, so it pushes on
// completion instead of serving /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog"
)

// RunMetrics holds the gauges describing one purge run.
type RunMetrics struct {
	UsersFetched    prometheus.Gauge
	PurgeCandidates prometheus.Gauge
	UsersRemoved    prometheus.Gauge
	DeletionsFailed prometheus.Gauge
	RunDuration     prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all run metrics on a private registry.
func New() *RunMetrics {
	reg := prometheus.NewRegistry()

	m := &RunMetrics{
		UsersFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "purge_users_fetched",
			Help: "Number of user entities fetched from Port.",
		}),
		PurgeCandidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "purge_candidates",
			Help: "Number of users classified as inactive and stale.",
		}),
		UsersRemoved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "purge_users_removed",
			Help: "Number of users successfully deleted.",
		}),
		DeletionsFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "purge_deletions_failed",
			Help: "Number of users whose deletion failed.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "purge_run_duration_seconds",
			Help: "Wall-clock duration of the purge run.",
		}),
		registry: reg,
	}

	reg.MustRegister(m.UsersFetched, m.PurgeCandidates, m.UsersRemoved, m.DeletionsFailed, m.RunDuration)
	return m
}

// Observe sets all gauges from the run's final counts.
func (m *RunMetrics) Observe(fetched, candidates, removed, failed int, duration time.Duration) {
	m.UsersFetched.Set(float64(fetched))
	m.PurgeCandidates.Set(float64(candidates))
	m.UsersRemoved.Set(float64(removed))
	m.DeletionsFailed.Set(float64(failed))
	m.RunDuration.Set(duration.Seconds())
}

// Push sends the registry to the Pushgateway at url. Failures are logged and
// swallowed: metrics must never fail a run that already completed.
func (m *RunMetrics) Push(url string, logger zerolog.Logger) {
	if url == "" {
		return
	}
	pusher := push.New(url, "port_user_purge").Gatherer(m.registry)
	if err := pusher.Push(); err != nil {
		logger.Warn().Err(err).Str("pushgateway", url).Msg("could not push run metrics")
		return
	}
	logger.Debug().Str("pushgateway", url).Msg("run metrics pushed")
}
