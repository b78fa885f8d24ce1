package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, route and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// Event stream metrics
var (
	// StreamSubscribers tracks currently connected stream subscribers
	StreamSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stream_subscribers",
			Help: "Number of connected event stream subscribers",
		},
		[]string{"tenant_id"},
	)

	// StreamEventsBroadcast tracks events fanned out to subscribers
	StreamEventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_events_broadcast_total",
			Help: "Total number of events broadcast to stream subscribers",
		},
		[]string{"tenant_id", "type"},
	)

	// StreamSubscribersPruned tracks dead subscribers removed during broadcast
	StreamSubscribersPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_subscribers_pruned_total",
			Help: "Total number of dead stream subscribers pruned",
		},
	)
)

// Conversation metrics
var (
	// ConversationsIngested tracks conversations written from Slack events
	ConversationsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_ingested_total",
			Help: "Total number of conversations ingested from Slack events",
		},
		[]string{"tenant_id", "event_type"},
	)

	// ThreadRepliesCreated tracks thread replies sent from the dashboard
	ThreadRepliesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thread_replies_created_total",
			Help: "Total number of thread replies created from the dashboard",
		},
		[]string{"tenant_id", "status"},
	)
)

// Slack integration metrics
var (
	// SlackEventsReceived tracks inbound Slack events by type
	SlackEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slack_events_received_total",
			Help: "Total number of Slack events received",
		},
		[]string{"event_type"},
	)

	// SlackAPICallDuration tracks outbound Slack Web API latency
	SlackAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slack_api_call_duration_seconds",
			Help:    "Slack Web API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "status"},
	)
)

// Membership metrics
var (
	// InvitationsTotal tracks invitation lifecycle transitions
	InvitationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitations_total",
			Help: "Total number of invitation lifecycle transitions",
		},
		[]string{"tenant_id", "status"},
	)

	// SessionsPurged tracks expired sessions removed by the cleanup job
	SessionsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_purged_total",
			Help: "Total number of expired sessions purged",
		},
	)
)
