package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// MessagesSent counts successfully submitted outbound messages.
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "console_messages_sent_total",
		Help: "Total number of messages accepted by the provider",
	})

	// MessagesFailed counts outbound sends that never reached the provider
	// or were rejected by it, by reason.
	MessagesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_messages_failed_total",
		Help: "Total number of failed outbound sends",
	}, []string{"reason"})

	// WebhookEvents counts inbound webhook callbacks by kind.
	WebhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_webhook_events_total",
		Help: "Total number of webhook callbacks received",
	}, []string{"kind"})

	// CampaignRecipients counts fan-out outcomes per recipient.
	CampaignRecipients = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_campaign_recipients_total",
		Help: "Total number of campaign recipients processed",
	}, []string{"outcome"})
)

func init() {
	registry.MustRegister(MessagesSent, MessagesFailed, WebhookEvents, CampaignRecipients)
}

// Handler exposes the private registry as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
