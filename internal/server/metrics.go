package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics captures the serving counters exported at /metrics.
type Metrics struct {
	registry *prometheus.Registry

	MessagesInserted prometheus.Counter
	MessageFetches   prometheus.Counter
	Uploads          prometheus.Counter
	UploadFailures   prometheus.Counter
	Subscribers      prometheus.Gauge
	RateLimited      prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		MessagesInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "moodchat_messages_inserted_total",
			Help: "Messages inserted into the store.",
		}),
		MessageFetches: factory.NewCounter(prometheus.CounterOpts{
			Name: "moodchat_message_fetches_total",
			Help: "Full history fetches served.",
		}),
		Uploads: factory.NewCounter(prometheus.CounterOpts{
			Name: "moodchat_attachment_uploads_total",
			Help: "Attachment uploads accepted.",
		}),
		UploadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "moodchat_attachment_upload_failures_total",
			Help: "Attachment uploads rejected or failed.",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "moodchat_ws_subscribers",
			Help: "Currently connected websocket subscribers.",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "moodchat_rate_limited_total",
			Help: "Requests rejected by the write rate limiter.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
