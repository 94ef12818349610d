package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	WebhookBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pressdesk_webhook_batches_total", Help: "Engagement webhook batch outcomes"},
		[]string{"result"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pressdesk_webhook_events_total", Help: "Accepted engagement events"},
		[]string{"event_type"},
	)
	WebhookSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pressdesk_webhook_skipped_total", Help: "Skipped engagement events"},
		[]string{"reason"},
	)
	CommitChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pressdesk_commit_chunks_total", Help: "Engagement commit chunks"},
		[]string{"result"},
	)
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pressdesk_api_requests_total", Help: "API requests"},
		[]string{"endpoint", "status"},
	)
	Enqueues = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pressdesk_enqueue_total", Help: "SQS enqueue results"},
		[]string{"result"},
	)
	MailSend = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pressdesk_mail_send_total", Help: "Provider send outcomes"},
		[]string{"result", "http_status"},
	)
	MailLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "pressdesk_mail_send_latency_seconds", Help: "Provider send latency"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(WebhookBatches, WebhookEvents, WebhookSkips, CommitChunks, APIRequests, Enqueues, MailSend, MailLatency)
}
