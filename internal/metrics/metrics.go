// Package metrics holds the Prometheus collectors for sessions, selection
// cycles and domain checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "outreach"

// Metrics holds all collectors. A nil *Metrics records nothing.
type Metrics struct {
	TargetsSeen       *prometheus.CounterVec
	TargetsSkipped    *prometheus.CounterVec
	Cycles            *prometheus.CounterVec
	CycleAttempts     *prometheus.HistogramVec
	CycleBestScore    *prometheus.HistogramVec
	CommentsPublished *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
	TokensUsed        *prometheus.CounterVec
	SessionsRunning   *prometheus.GaugeVec
	DomainChecks      *prometheus.CounterVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{}
	m.initSessionMetrics(factory)
	m.initCycleMetrics(factory)

	m.DomainChecks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "domains",
		Name:      "checks_total",
		Help:      "Domain availability checks by method and status",
	}, []string{"method", "status"})
	return m
}

func (m *Metrics) initSessionMetrics(factory promauto.Factory) {
	m.TargetsSeen = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "targets_seen_total",
		Help:      "Targets returned by platform searches",
	}, []string{"platform"})

	m.TargetsSkipped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "targets_skipped_total",
		Help:      "Targets skipped before generation, by reason",
	}, []string{"platform", "reason"})

	m.CommentsPublished = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "comments_published_total",
		Help:      "Comments handed to a publisher successfully",
	}, []string{"platform", "publisher"})

	m.PublishFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "publish_failures_total",
		Help:      "Accepted comments the publisher rejected",
	}, []string{"platform", "publisher"})

	m.SessionsRunning = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "running",
		Help:      "Sessions currently running",
	}, []string{"platform"})
}

func (m *Metrics) initCycleMetrics(factory promauto.Factory) {
	m.Cycles = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "selection",
		Name:      "cycles_total",
		Help:      "Selection cycles by final state",
	}, []string{"platform", "state"})

	m.CycleAttempts = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "selection",
		Name:      "attempts",
		Help:      "Attempts used per selection cycle",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	}, []string{"platform"})

	m.CycleBestScore = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "selection",
		Name:      "best_score",
		Help:      "Best rubric total per selection cycle",
		Buckets:   prometheus.LinearBuckets(0, 10, 8),
	}, []string{"platform"})

	m.TokensUsed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ai",
		Name:      "tokens_total",
		Help:      "Tokens reported by AI providers",
	}, []string{"platform"})
}

func (m *Metrics) TargetSeen(platform string) {
	if m == nil {
		return
	}
	m.TargetsSeen.WithLabelValues(platform).Inc()
}

func (m *Metrics) TargetSkipped(platform, reason string) {
	if m == nil {
		return
	}
	m.TargetsSkipped.WithLabelValues(platform, reason).Inc()
}

// CycleFinished records the end state of a selection cycle.
func (m *Metrics) CycleFinished(platform, state string, attempts, bestScore, tokens int) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(platform, state).Inc()
	m.CycleAttempts.WithLabelValues(platform).Observe(float64(attempts))
	m.CycleBestScore.WithLabelValues(platform).Observe(float64(bestScore))
	m.TokensUsed.WithLabelValues(platform).Add(float64(tokens))
}

func (m *Metrics) Published(platform, publisher string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PublishFailures.WithLabelValues(platform, publisher).Inc()
		return
	}
	m.CommentsPublished.WithLabelValues(platform, publisher).Inc()
}

// SessionStarted increments the running gauge and returns its decrement.
func (m *Metrics) SessionStarted(platform string) func() {
	if m == nil {
		return func() {}
	}
	g := m.SessionsRunning.WithLabelValues(platform)
	g.Inc()
	return g.Dec
}

func (m *Metrics) DomainChecked(method, status string) {
	if m == nil {
		return
	}
	m.DomainChecks.WithLabelValues(method, status).Inc()
}
