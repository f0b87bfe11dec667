package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "notification_rules"

// Metrics holds the Prometheus collectors for the rule engine
type Metrics struct {
	notificationsTotal *prometheus.CounterVec
	ruleEvaluations    *prometheus.CounterVec
	actionsTotal       *prometheus.CounterVec
	brokerMessages     *prometheus.CounterVec
	brokerReconnects   prometheus.Counter
	brokerConnected    prometheus.Gauge
	historySize        prometheus.Gauge
	rulesActive        prometheus.Gauge
	postDuration       prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil registerer yields working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications posted to the evaluator, by notification type",
		}, []string{"type"}),

		ruleEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_evaluations_total",
			Help:      "Rule evaluations, by result (matched, unmatched, error)",
		}, []string{"result"}),

		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions fired, by action type and status",
		}, []string{"action", "status"}),

		brokerMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "messages_total",
			Help:      "Broker messages handled, by status (received, posted, invalid, error)",
		}, []string{"status"}),

		brokerReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "reconnects_total",
			Help:      "Broker reconnect attempts",
		}),

		brokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "connected",
			Help:      "1 when the broker connection is up",
		}),

		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_size",
			Help:      "Notifications held in the evaluator history",
		}),

		rulesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules_active",
			Help:      "Rules registered with the evaluator",
		}),

		postDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "post_duration_seconds",
			Help:      "Time spent evaluating rules and firing actions for one notification",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
	}

	if reg == nil {
		return m, nil
	}

	collectors := []prometheus.Collector{
		m.notificationsTotal,
		m.ruleEvaluations,
		m.actionsTotal,
		m.brokerMessages,
		m.brokerReconnects,
		m.brokerConnected,
		m.historySize,
		m.rulesActive,
		m.postDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// IncNotifications counts a posted notification of the given type
func (m *Metrics) IncNotifications(notificationType string) {
	m.notificationsTotal.WithLabelValues(notificationType).Inc()
}

// IncRuleEvaluations counts a rule evaluation result
func (m *Metrics) IncRuleEvaluations(result string) {
	m.ruleEvaluations.WithLabelValues(result).Inc()
}

// IncActionsTotal counts a fired action and its outcome
func (m *Metrics) IncActionsTotal(action, status string) {
	m.actionsTotal.WithLabelValues(action, status).Inc()
}

// IncBrokerMessages counts a broker message by status
func (m *Metrics) IncBrokerMessages(status string) {
	m.brokerMessages.WithLabelValues(status).Inc()
}

// IncBrokerReconnects counts a reconnect attempt
func (m *Metrics) IncBrokerReconnects() {
	m.brokerReconnects.Inc()
}

// SetBrokerConnectionStatus records whether the broker is connected
func (m *Metrics) SetBrokerConnectionStatus(connected bool) {
	if connected {
		m.brokerConnected.Set(1)
		return
	}
	m.brokerConnected.Set(0)
}

// SetHistorySize records the evaluator history length
func (m *Metrics) SetHistorySize(n float64) {
	m.historySize.Set(n)
}

// SetRulesActive records the number of registered rules
func (m *Metrics) SetRulesActive(n float64) {
	m.rulesActive.Set(n)
}

// ObservePostDuration records the time one post took
func (m *Metrics) ObservePostDuration(seconds float64) {
	m.postDuration.Observe(seconds)
}
