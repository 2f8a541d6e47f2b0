// Package telemetry counts token, resolution and guard outcomes with
// prometheus.
package telemetry

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	auth "github.com/goliatone/go-booknook-auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booknook_auth"

// Metrics implements auth.TokenObserver, auth.ResolutionObserver and
// auth.GuardObserver.
type Metrics struct {
	registry    *prometheus.Registry
	tokens      *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	guards      *prometheus.CounterVec
	activity    *prometheus.CounterVec
}

var (
	_ auth.TokenObserver      = (*Metrics)(nil)
	_ auth.ResolutionObserver = (*Metrics)(nil)
	_ auth.GuardObserver      = (*Metrics)(nil)
)

// New registers the collectors on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Decoded tokens by decode path and result.",
		}, []string{"path", "result"}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_resolutions_total",
			Help:      "Identity resolutions by outcome.",
		}, []string{"outcome"}),
		guards: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Authorization guard decisions by guard and outcome.",
		}, []string{"guard", "outcome"}),
		activity: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_total",
			Help:      "Auth activity events by type.",
		}, []string{"event"}),
	}
}

func (m *Metrics) TokenAccepted(path string) {
	m.tokens.WithLabelValues(path, "accepted").Inc()
}

func (m *Metrics) TokenRejected(path string) {
	m.tokens.WithLabelValues(path, "rejected").Inc()
}

func (m *Metrics) ResolutionObserved(outcome string) {
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GuardObserved(guard, outcome string) {
	m.guards.WithLabelValues(guard, outcome).Inc()
}

// ActivitySink counts activity events. It never fails.
func (m *Metrics) ActivitySink() auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		m.activity.WithLabelValues(string(event.EventType)).Inc()
		return nil
	})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
