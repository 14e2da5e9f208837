package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRouterMetricsNilSafe(t *testing.T) {
	var m *RouterMetrics
	m.ObserveOutcome(OutcomeReplied)
	m.ObserveDelay(21.5)
	m.SessionCreated()
}

func TestLogMetricsSummary(t *testing.T) {
	reg := prometheus.NewRegistry()
	tr, be := &fakeTransport{}, &fakeBackend{}
	r, _ := newTestRouter(t, tr, be, "777")
	r.metrics = NewRouterMetrics(reg)
	ctx := context.Background()

	r.Handle(ctx, privateMessage("42", "Who is this?"))
	r.Handle(ctx, privateMessage("43", "Hello?"))
	r.Handle(ctx, privateMessage("777", "hi"))

	var buf bytes.Buffer
	logMetricsSummary(reg, zerolog.New(&buf))

	out := buf.String()
	assert.Contains(t, out, `"message":"Router summary"`)
	assert.Contains(t, out, `"messages_total.replied":2`)
	assert.Contains(t, out, `"messages_total.ignored_whitelisted":1`)
	assert.Contains(t, out, `"sessions":2`)
	assert.Contains(t, out, `"reply_delay_seconds_count":2`)
}

func TestLogMetricsSummaryEmptyRegistry(t *testing.T) {
	var buf bytes.Buffer
	logMetricsSummary(prometheus.NewRegistry(), zerolog.New(&buf))

	assert.Contains(t, buf.String(), "Router summary")
}
