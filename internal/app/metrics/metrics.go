package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the engine's Prometheus instruments. A nil *Collector is valid and
// records nothing.
type Collector struct {
	submitted     *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	queueMessages *prometheus.CounterVec
	passDuration  *prometheus.HistogramVec
	channelErrors *prometheus.CounterVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convd",
			Name:      "jobs_submitted_total",
			Help:      "Submission attempts by result.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convd",
			Name:      "jobs_transitions_total",
			Help:      "Overall job status transitions by target status.",
		}, []string{"status"}),
		queueMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convd",
			Name:      "queue_messages_total",
			Help:      "Queue messages received by ingestion result.",
		}, []string{"result"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "convd",
			Name:      "pass_duration_seconds",
			Help:      "Duration of submit and reconcile passes.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"pass"}),
		channelErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convd",
			Name:      "channel_errors_total",
			Help:      "Transport errors by channel.",
		}, []string{"channel"}),
	}
	reg.MustRegister(c.submitted, c.transitions, c.queueMessages, c.passDuration, c.channelErrors)
	return c
}

func (c *Collector) Submitted(result string) {
	if c != nil {
		c.submitted.WithLabelValues(result).Inc()
	}
}

func (c *Collector) Transition(status string) {
	if c != nil {
		c.transitions.WithLabelValues(status).Inc()
	}
}

func (c *Collector) QueueMessage(result string) {
	if c != nil {
		c.queueMessages.WithLabelValues(result).Inc()
	}
}

func (c *Collector) ChannelError(channel string) {
	if c != nil {
		c.channelErrors.WithLabelValues(channel).Inc()
	}
}

func (c *Collector) ObservePass(pass string, d time.Duration) {
	if c != nil {
		c.passDuration.WithLabelValues(pass).Observe(d.Seconds())
	}
}
