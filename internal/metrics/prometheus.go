package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector using Prometheus metrics.
type PrometheusCollector struct {
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge

	authAttemptsTotal *prometheus.CounterVec
	commandsTotal     *prometheus.CounterVec

	cipsPublishedTotal   prometheus.Counter
	followChangesTotal   *prometheus.CounterVec
	oversizedDroppedTotal prometheus.Counter
}

// NewPrometheusCollector creates a PrometheusCollector with all metrics registered.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cipsd_connections_total",
			Help: "Total number of connections opened.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cipsd_connections_active",
			Help: "Number of currently active connections.",
		}),

		authAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cipsd_auth_attempts_total",
			Help: "Total number of register/login attempts.",
		}, []string{"op", "result"}),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cipsd_commands_total",
			Help: "Total number of commands processed.",
		}, []string{"command"}),

		cipsPublishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cipsd_cips_published_total",
			Help: "Total number of cips published.",
		}),
		followChangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cipsd_follow_changes_total",
			Help: "Total number of follow/unfollow per-user results, by op and result code.",
		}, []string{"op", "code"}),
		oversizedDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cipsd_oversized_commands_total",
			Help: "Total number of oversized-command defense triggers.",
		}),
	}

	reg.MustRegister(
		c.connectionsTotal,
		c.connectionsActive,
		c.authAttemptsTotal,
		c.commandsTotal,
		c.cipsPublishedTotal,
		c.followChangesTotal,
		c.oversizedDroppedTotal,
	)

	return c
}

// ConnectionOpened increments the connection counter and active gauge.
func (c *PrometheusCollector) ConnectionOpened() {
	c.connectionsTotal.Inc()
	c.connectionsActive.Inc()
}

// ConnectionClosed decrements the active connections gauge.
func (c *PrometheusCollector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

// AuthAttempt increments the register/login attempt counter.
func (c *PrometheusCollector) AuthAttempt(op string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.authAttemptsTotal.WithLabelValues(op, result).Inc()
}

// CommandProcessed increments the command counter.
func (c *PrometheusCollector) CommandProcessed(command string) {
	c.commandsTotal.WithLabelValues(command).Inc()
}

// CipPublished increments the published-cip counter.
func (c *PrometheusCollector) CipPublished() {
	c.cipsPublishedTotal.Inc()
}

// FollowChanged increments the follow/unfollow result counter.
func (c *PrometheusCollector) FollowChanged(op string, code int) {
	c.followChangesTotal.WithLabelValues(op, strconv.Itoa(code)).Inc()
}

// OversizedCommandDropped increments the oversized-command counter.
func (c *PrometheusCollector) OversizedCommandDropped() {
	c.oversizedDroppedTotal.Inc()
}
