package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesSent counts messages durably persisted via the store adapter.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clubchat_messages_sent_total",
		Help: "Messages persisted through the store adapter.",
	})

	// FeedEvents counts change-feed events delivered to subscribers,
	// labelled by event kind.
	FeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubchat_feed_events_total",
		Help: "Change feed events delivered to subscribers.",
	}, []string{"kind"})

	// FeedReconnects counts automatic feed resubscribe attempts.
	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clubchat_feed_reconnects_total",
		Help: "Change feed resubscribe attempts after a dropped connection.",
	})

	// OpenSessions tracks currently connected websocket sessions.
	OpenSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clubchat_open_sessions",
		Help: "Currently open websocket sessions.",
	})

	// AttachmentUploads counts attachment uploads, labelled by outcome.
	AttachmentUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubchat_attachment_uploads_total",
		Help: "Attachment uploads by outcome.",
	}, []string{"outcome"})
)
