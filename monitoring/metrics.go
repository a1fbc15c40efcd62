package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qserveu/store"
)

var (
	waitingLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_waiting_length",
			Help: "Current number of waiting tickets per office",
		},
		[]string{"office_id"},
	)

	ticketAllocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_allocations_total",
			Help: "Ticket allocation attempts by outcome",
		},
		[]string{"office_id", "outcome"},
	)

	alertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_alerts_total",
			Help: "Alerts emitted by the status change notifier",
		},
		[]string{"kind"},
	)

	pollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poll_evaluation_seconds",
			Help:    "Duration of one snapshot poll and notifier evaluation",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// TrackAllocation records one allocation attempt.
func TrackAllocation(officeID, outcome string) {
	ticketAllocations.WithLabelValues(officeID, outcome).Inc()
}

// TrackAlert records one emitted alert.
func TrackAlert(kind string) {
	alertsEmitted.WithLabelValues(kind).Inc()
}

// ObservePoll records the duration of one poll tick.
func ObservePoll(d time.Duration) {
	pollDuration.Observe(d.Seconds())
}

// TrackBreakerState records a circuit breaker's current state.
func TrackBreakerState(name string, state int) {
	breakerState.WithLabelValues(name).Set(float64(state))
}

// Monitor periodically samples queue lengths from the store.
type Monitor struct {
	store  store.Store
	logger *slog.Logger
}

func NewMonitor(st store.Store, logger *slog.Logger) *Monitor {
	return &Monitor{store: st, logger: logger}
}

// Run samples until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectQueueMetrics(ctx)
		}
	}
}

func (m *Monitor) collectQueueMetrics(ctx context.Context) {
	offices, err := m.store.ListOffices(ctx)
	if err != nil {
		m.logger.Warn("queue metrics collection failed", "err", err)
		return
	}

	for _, office := range offices {
		length, err := m.store.CountWaiting(ctx, office.ID)
		if err != nil {
			continue
		}
		waitingLength.WithLabelValues(office.ID).Set(float64(length))
	}
}
