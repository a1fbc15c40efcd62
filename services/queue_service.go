package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"qserveu/config"
	"qserveu/internal/status"
	"qserveu/models"
	"qserveu/monitoring"
	"qserveu/store"
	"qserveu/utils"
)

// CancelledByStudent is the note recorded on visitor-initiated cancellation.
// The staff dashboard surfaces it verbatim.
const CancelledByStudent = "Cancelled by student"

// QueueService owns ticket creation, numbering, cancellation and the
// feedback-gating reads. It never mutates a ticket past the waiting state;
// serving and completion belong to the staff-side dispatcher.
type QueueService struct {
	store   store.Store
	locker  OfficeLocker
	breaker *utils.CircuitBreaker
	config  *config.Config
	logger  *slog.Logger

	now func() time.Time
}

func NewQueueService(st store.Store, locker OfficeLocker, cfg *config.Config, logger *slog.Logger) *QueueService {
	return &QueueService{
		store:   st,
		locker:  locker,
		breaker: utils.NewCircuitBreaker("store"),
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// RequestTicket admits the visitor into the office queue and assigns the
// lowest display number that is neither active nor cooling down. The number
// scan and the insert run under a per-office lock so concurrent requests
// cannot pick the same number.
func (s *QueueService) RequestTicket(ctx context.Context, studentID, officeID, purpose string) (*models.Ticket, error) {
	now := s.now().UTC()

	active, err := s.store.ActiveTicket(ctx, studentID, now.Add(-s.config.ActiveLookback))
	if err != nil && !errors.Is(err, status.ErrNotFound) {
		return nil, err
	}
	if active != nil {
		monitoring.TrackAllocation(officeID, "already_queued")
		return nil, &status.AlreadyQueuedError{Number: active.Number}
	}

	office, err := s.store.GetOffice(ctx, officeID)
	if errors.Is(err, status.ErrNotFound) {
		return nil, status.ErrOfficeNotFound
	}
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, officeID)
	if err != nil {
		return nil, status.StoreError("acquire allocation lock", err)
	}
	defer release()

	ordinal, err := s.nextOrdinal(ctx, office)
	if err != nil {
		return nil, err
	}

	// Snapshot count; not recomputed after the insert.
	peopleAhead, err := s.store.CountWaiting(ctx, officeID)
	if err != nil {
		return nil, err
	}

	ticket := &models.Ticket{
		StudentID: studentID,
		OfficeID:  officeID,
		Number:    models.FormatNumber(office.Prefix(), ordinal),
		Purpose:   purpose,
		Status:    models.StatusWaiting,
		CreatedAt: now,
	}
	if err := s.store.InsertTicket(ctx, ticket); err != nil {
		monitoring.TrackAllocation(officeID, "error")
		return nil, err
	}

	ticket.PeopleAhead = peopleAhead
	ticket.OfficeName = office.Name
	monitoring.TrackAllocation(officeID, "ok")
	s.logger.Info("ticket allocated",
		"office_id", officeID,
		"queue_number", ticket.Number,
		"people_ahead", peopleAhead,
	)
	return ticket, nil
}

// nextOrdinal returns the lowest ordinal absent from both the active set and
// the cooldown set. Cooldown keeps a freshly freed number off the board for a
// while, so the previous holder is not confused by a duplicate display.
func (s *QueueService) nextOrdinal(ctx context.Context, office *models.Office) (int, error) {
	prefix := office.Prefix()

	activeNumbers, err := s.store.ActiveNumbers(ctx, office.ID)
	if err != nil {
		return 0, err
	}
	used := s.parseOrdinals(prefix, activeNumbers)

	cooldown := map[int]bool{}
	if len(used) > 0 {
		freed, err := s.store.FreedNumbersSince(ctx, office.ID, s.now().UTC().Add(-s.config.NumberCooldown))
		if err != nil {
			return 0, err
		}
		cooldown = s.parseOrdinals(prefix, freed)
	}

	for ordinal := 1; ordinal <= models.MaxOrdinal; ordinal++ {
		if !used[ordinal] && !cooldown[ordinal] {
			return ordinal, nil
		}
	}
	// Every ordinal is taken; the display caps at the highest code rather
	// than failing the request.
	return models.MaxOrdinal, nil
}

func (s *QueueService) parseOrdinals(prefix string, codes []string) map[int]bool {
	ordinals := make(map[int]bool, len(codes))
	for _, code := range codes {
		ordinal, err := models.ParseNumber(prefix, code)
		if err != nil {
			s.logger.Warn("skipping unparseable queue number", "code", code, "err", err)
			continue
		}
		ordinals[ordinal] = true
	}
	return ordinals
}

// CurrentTicket returns the visitor's most recent ticket inside the lookback
// window while it is waiting, serving or cancelled. Completed tickets are
// excluded here; they surface through PendingFeedback instead. A nil ticket
// with nil error means the visitor has nothing on the board.
//
// The call runs through a circuit breaker: this is the poll path, and a dead
// store should fail fast instead of stacking blocked polls.
func (s *QueueService) CurrentTicket(ctx context.Context, studentID string) (*models.Ticket, error) {
	v, err := s.breaker.Execute(ctx, func() (any, error) {
		return s.currentTicket(ctx, studentID)
	})
	monitoring.TrackBreakerState(s.breaker.Name(), int(s.breaker.State()))
	if err != nil {
		return nil, err
	}
	ticket, _ := v.(*models.Ticket)
	return ticket, nil
}

func (s *QueueService) currentTicket(ctx context.Context, studentID string) (*models.Ticket, error) {
	now := s.now().UTC()

	ticket, err := s.store.LatestTicket(ctx, studentID, now.Add(-s.config.ActiveLookback))
	if errors.Is(err, status.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	switch ticket.Status {
	case models.StatusWaiting, models.StatusServing, models.StatusCancelled:
	default:
		return nil, nil
	}

	if ticket.Status == models.StatusWaiting {
		ahead, err := s.store.CountWaitingBefore(ctx, ticket.OfficeID, ticket.CreatedAt)
		if err != nil {
			return nil, err
		}
		ticket.PeopleAhead = ahead
	}
	return ticket, nil
}

// CancelTicket cancels the visitor's own waiting ticket. A ticket that is
// missing, belongs to someone else, or is already being served all come back
// as ErrCannotCancel; the store's conditional update does not distinguish.
func (s *QueueService) CancelTicket(ctx context.Context, ticketID, studentID string) error {
	ok, err := s.store.MarkCancelled(ctx, ticketID, studentID, CancelledByStudent, s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return status.ErrCannotCancel
	}
	s.logger.Info("ticket cancelled by student", "ticket_id", ticketID)
	return nil
}

// PendingFeedback returns the visitor's most recent completed ticket when it
// has not been rated yet, nil otherwise. At most one prompt is ever offered.
func (s *QueueService) PendingFeedback(ctx context.Context, studentID string) (*models.Ticket, error) {
	ticket, err := s.store.LatestCompleted(ctx, studentID)
	if errors.Is(err, status.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rated, err := s.store.HasFeedback(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if rated {
		return nil, nil
	}
	return ticket, nil
}

// SubmitFeedback stores a rating for a completed ticket. Range validation of
// the rating belongs to the caller.
func (s *QueueService) SubmitFeedback(ctx context.Context, f *models.Feedback) error {
	if err := s.store.InsertFeedback(ctx, f); err != nil {
		return err
	}
	s.logger.Info("feedback submitted", "ticket_id", f.TicketID, "rating", f.Rating)
	return nil
}

// OfficeRating aggregates submitted ratings for one office.
func (s *QueueService) OfficeRating(ctx context.Context, officeID string) (*models.FeedbackSummary, error) {
	return s.store.FeedbackSummary(ctx, officeID)
}

// Office resolves one office; used by the admission gate to learn the
// expected network name.
func (s *QueueService) Office(ctx context.Context, officeID string) (*models.Office, error) {
	office, err := s.store.GetOffice(ctx, officeID)
	if errors.Is(err, status.ErrNotFound) {
		return nil, status.ErrOfficeNotFound
	}
	return office, err
}

// ListOffices returns every office a visitor can queue for.
func (s *QueueService) ListOffices(ctx context.Context) ([]models.Office, error) {
	return s.store.ListOffices(ctx)
}
