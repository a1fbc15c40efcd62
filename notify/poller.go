package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"qserveu/models"
	"qserveu/monitoring"
)

// SnapshotSource is the allocation service's read path, as seen by the
// notifier. A nil ticket with nil error means "no snapshot this tick".
type SnapshotSource interface {
	CurrentTicket(ctx context.Context, studentID string) (*models.Ticket, error)
}

// Poller drives one visitor session: every interval it fetches the current
// ticket and feeds the snapshot to the notifier. Ticks never overlap; if the
// previous store call is still in flight the tick is skipped, not queued.
type Poller struct {
	studentID string
	source    SnapshotSource
	notifier  *Notifier
	sinks     []Sink
	interval  time.Duration
	idleLimit int
	logger    *slog.Logger

	busy atomic.Bool
	idle int
}

func NewPoller(studentID string, source SnapshotSource, sinks []Sink, interval time.Duration, idleLimit int, logger *slog.Logger) *Poller {
	return &Poller{
		studentID: studentID,
		source:    source,
		notifier:  NewNotifier(nil),
		sinks:     sinks,
		interval:  interval,
		idleLimit: idleLimit,
		logger:    logger,
	}
}

// Run polls until the context is cancelled or the session has produced no
// snapshot for idleLimit consecutive ticks.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one poll evaluation; it reports true when the poller should stop.
func (p *Poller) tick(ctx context.Context) bool {
	if !p.busy.CompareAndSwap(false, true) {
		// Previous call still blocked on the store.
		return false
	}
	defer p.busy.Store(false)

	start := time.Now()
	ticket, err := p.source.CurrentTicket(ctx, p.studentID)
	monitoring.ObservePoll(time.Since(start))
	if err != nil {
		p.logger.Warn("snapshot poll failed", "student_id", p.studentID, "err", err)
		return false
	}
	if ticket == nil {
		p.idle++
		return p.idleLimit > 0 && p.idle >= p.idleLimit
	}
	p.idle = 0

	for _, alert := range p.notifier.Evaluate(ticket.Snapshot()) {
		monitoring.TrackAlert(alert.Kind)
		for _, sink := range p.sinks {
			sink.Display(alert.Title, alert.Body)
		}
	}
	return false
}
