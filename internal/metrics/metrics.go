package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	UpdatesTotal     prometheus.Counter
	DuplicateUpdates prometheus.Counter
	IngestedMessages *prometheus.CounterVec
	RejectedMessages prometheus.Counter
	IngestFailures   prometheus.Counter
	DefaultsChanged  *prometheus.CounterVec
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			UpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "labelops",
				Name:      "telegram_updates_total",
				Help:      "Total telegram updates received",
			}),
			DuplicateUpdates: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "labelops",
				Name:      "telegram_duplicate_updates_total",
				Help:      "Telegram updates dropped as already seen",
			}),
			IngestedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "labelops",
				Name:      "messages_ingested_total",
				Help:      "Messages persisted to a client inbox",
			}, []string{"client_id"}),
			RejectedMessages: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "labelops",
				Name:      "messages_rejected_total",
				Help:      "Messages ignored because the sender is not allowlisted",
			}),
			IngestFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "labelops",
				Name:      "ingest_failures_total",
				Help:      "Messages that could not be persisted",
			}),
			DefaultsChanged: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "labelops",
				Name:      "chat_defaults_changed_total",
				Help:      "Successful /setclient updates",
			}, []string{"client_id"}),
		}
		prometheus.MustRegister(
			global.UpdatesTotal,
			global.DuplicateUpdates,
			global.IngestedMessages,
			global.RejectedMessages,
			global.IngestFailures,
			global.DefaultsChanged,
		)
	})
	return global
}
