package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Push paths used as the "path" label.
const (
	PathSingle = "single"
	PathBulk   = "bulk"
)

var (
	PushSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "push_messages_sent_total", Help: "Push messages accepted by the provider",
	}, []string{"path"})

	PushFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "push_messages_failed_total", Help: "Push messages rejected by the provider or not sent because of an error",
	}, []string{"path"})

	DispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dispatch_outcomes_total", Help: "Single-target dispatch outcomes",
	}, []string{"outcome"})

	BulkCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_dispatch_calls_total", Help: "Bulk dispatch calls by result code",
	}, []string{"code"})

	TokensReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fcm_tokens_reaped_total", Help: "Stale push tokens cleared by the reaper",
	})

	ReaperRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "token_reaper_runs_total", Help: "Token reaper sweeps by result",
	}, []string{"result"})

	ReaperDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "token_reaper_duration_seconds", Help: "Token reaper sweep duration",
		Buckets: prometheus.DefBuckets,
	})
)
