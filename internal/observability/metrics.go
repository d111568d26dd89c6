package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_client_http_attempts_total",
			Help: "Total number of HTTP attempts made against the marketplace server.",
		},
		[]string{"method", "outcome"},
	)
	httpRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_client_http_retries_total",
			Help: "Total number of HTTP attempts that were retried.",
		},
		[]string{"method"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_client_ws_events_total",
			Help: "Total number of realtime channel events.",
		},
		[]string{"event"},
	)
	wsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "market_client_ws_connected",
			Help: "1 while the realtime channel is connected.",
		},
	)
	wsReconnectAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "market_client_ws_reconnect_attempts_total",
			Help: "Total number of realtime reconnect attempts.",
		},
	)
	pendingMessages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "market_client_pending_messages",
			Help: "Outgoing chat messages waiting for acknowledgement.",
		},
	)
	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_client_message_deliveries_total",
			Help: "Outgoing chat messages by final delivery status.",
		},
		[]string{"status"},
	)
	bridgeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_client_bridge_requests_total",
			Help: "Total number of requests served by the local bridge.",
		},
		[]string{"method", "route", "status"},
	)
	bridgeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "market_client_bridge_request_duration_seconds",
			Help:    "Local bridge request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "market_client_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpAttemptsTotal,
		httpRetriesTotal,
		wsEventsTotal,
		wsConnected,
		wsReconnectAttemptsTotal,
		pendingMessages,
		deliveriesTotal,
		bridgeRequestsTotal,
		bridgeRequestDuration,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records bridge request counts and latencies.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		bridgeRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		bridgeRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func ObserveHTTPAttempt(method, outcome string) {
	httpAttemptsTotal.WithLabelValues(method, outcome).Inc()
}

func IncHTTPRetry(method string) {
	httpRetriesTotal.WithLabelValues(method).Inc()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func SetWSConnected(connected bool) {
	if connected {
		wsConnected.Set(1)
		return
	}
	wsConnected.Set(0)
}

func IncReconnectAttempt() {
	wsReconnectAttemptsTotal.Inc()
}

func SetPendingMessages(n int) {
	pendingMessages.Set(float64(n))
}

func IncDelivery(status string) {
	deliveriesTotal.WithLabelValues(status).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
