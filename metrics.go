package main

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

const routerMetricPrefix = "decoy_router_"

// Outcome is how the router disposed of one inbound event.
type Outcome string

const (
	OutcomeIgnoredNotPrivate  Outcome = "ignored_not_private"
	OutcomeIgnoredSelf        Outcome = "ignored_self"
	OutcomeIgnoredWhitelisted Outcome = "ignored_whitelisted"
	OutcomeIgnoredEmpty       Outcome = "ignored_empty"
	OutcomeReplied            Outcome = "replied"
	OutcomeFailed             Outcome = "failed"
)

// RouterMetrics counts router decisions. A nil *RouterMetrics is a no-op.
type RouterMetrics struct {
	messagesTotal *prometheus.CounterVec
	replyDelay    prometheus.Histogram
	sessions      prometheus.Gauge
}

func NewRouterMetrics(reg prometheus.Registerer) *RouterMetrics {
	m := &RouterMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "decoy",
			Subsystem: "router",
			Name:      "messages_total",
			Help:      "Inbound messages by outcome",
		}, []string{"outcome"}),
		replyDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "decoy",
			Subsystem: "router",
			Name:      "reply_delay_seconds",
			Help:      "Simulated typing delay before each reply",
			Buckets:   prometheus.LinearBuckets(0, 5, 12),
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "decoy",
			Subsystem: "router",
			Name:      "sessions",
			Help:      "Conversations held with unknown senders",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.replyDelay, m.sessions)
	return m
}

func (m *RouterMetrics) ObserveOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(string(o)).Inc()
}

func (m *RouterMetrics) ObserveDelay(seconds float64) {
	if m == nil {
		return
	}
	m.replyDelay.Observe(seconds)
}

func (m *RouterMetrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

// logMetricsSummary writes the router's collectors from g as one log line, e.g.
// messages_total.replied=3 sessions=2 reply_delay_seconds_count=3.
func logMetricsSummary(g prometheus.Gatherer, log zerolog.Logger) {
	families, err := g.Gather()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to gather metrics")
	}

	ev := log.Info()
	for _, mf := range families {
		name, ok := strings.CutPrefix(mf.GetName(), routerMetricPrefix)
		if !ok {
			continue
		}
		for _, m := range mf.GetMetric() {
			key := name
			for _, lp := range m.GetLabel() {
				key += "." + lp.GetValue()
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				ev = ev.Float64(key, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				ev = ev.Float64(key, m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				ev = ev.Uint64(key+"_count", m.GetHistogram().GetSampleCount()).
					Float64(key+"_sum", m.GetHistogram().GetSampleSum())
			}
		}
	}
	ev.Msg("Router summary")
}
