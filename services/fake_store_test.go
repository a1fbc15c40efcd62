package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"qserveu/internal/status"
	"qserveu/models"
	"qserveu/utils"
)

// fakeStore is an in-memory store.Store used by the service tests. It keeps
// the same visibility rules as the SQL implementation: lookups filter by
// window and status, absent rows come back as status.ErrNotFound.
type fakeStore struct {
	mu       sync.Mutex
	offices  map[string]*models.Office
	students map[string]*models.Student
	tickets  []*models.Ticket
	feedback []*models.Feedback

	// failWith, when set, is returned by every call.
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		offices:  make(map[string]*models.Office),
		students: make(map[string]*models.Student),
	}
}

func (f *fakeStore) addOffice(o models.Office) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offices[o.ID] = &o
}

func (f *fakeStore) addTicket(t models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = utils.NewRecordID()
	}
	f.tickets = append(f.tickets, &t)
}

func (f *fakeStore) ticketByID(id string) *models.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.ID == id {
			copied := *t
			return &copied
		}
	}
	return nil
}

func (f *fakeStore) latest(studentID string, match func(*models.Ticket) bool) *models.Ticket {
	var best *models.Ticket
	for _, t := range f.tickets {
		if t.StudentID != studentID || !match(t) {
			continue
		}
		if best == nil || !t.CreatedAt.Before(best.CreatedAt) {
			best = t
		}
	}
	if best == nil {
		return nil
	}
	copied := *best
	return &copied
}

func (f *fakeStore) ActiveTicket(_ context.Context, studentID string, since time.Time) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	t := f.latest(studentID, func(t *models.Ticket) bool {
		return t.Active() && t.CreatedAt.After(since)
	})
	if t == nil {
		return nil, status.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) LatestTicket(_ context.Context, studentID string, since time.Time) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	t := f.latest(studentID, func(t *models.Ticket) bool {
		return t.CreatedAt.After(since)
	})
	if t == nil {
		return nil, status.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) InsertTicket(_ context.Context, t *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if t.ID == "" {
		t.ID = utils.NewRecordID()
	}
	copied := *t
	f.tickets = append(f.tickets, &copied)
	return nil
}

func (f *fakeStore) MarkCancelled(_ context.Context, ticketID, studentID, note string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	for _, t := range f.tickets {
		if t.ID == ticketID && t.StudentID == studentID && t.Status == models.StatusWaiting {
			t.Status = models.StatusCancelled
			t.Notes = note
			cancelled := at
			t.CancelledAt = &cancelled
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ActiveNumbers(_ context.Context, officeID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var numbers []string
	for _, t := range f.tickets {
		if t.OfficeID == officeID && t.Active() {
			numbers = append(numbers, t.Number)
		}
	}
	return numbers, nil
}

func (f *fakeStore) FreedNumbersSince(_ context.Context, officeID string, since time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var numbers []string
	for _, t := range f.tickets {
		if t.OfficeID != officeID {
			continue
		}
		switch t.Status {
		case models.StatusCompleted:
			if t.CompletedAt != nil && t.CompletedAt.After(since) {
				numbers = append(numbers, t.Number)
			}
		case models.StatusCancelled:
			if t.CancelledAt != nil && t.CancelledAt.After(since) {
				numbers = append(numbers, t.Number)
			}
		}
	}
	return numbers, nil
}

func (f *fakeStore) CountWaiting(_ context.Context, officeID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	count := 0
	for _, t := range f.tickets {
		if t.OfficeID == officeID && t.Status == models.StatusWaiting {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CountWaitingBefore(_ context.Context, officeID string, before time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	count := 0
	for _, t := range f.tickets {
		if t.OfficeID == officeID && t.Status == models.StatusWaiting && t.CreatedAt.Before(before) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) LatestCompleted(_ context.Context, studentID string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	t := f.latest(studentID, func(t *models.Ticket) bool {
		return t.Status == models.StatusCompleted
	})
	if t == nil {
		return nil, status.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) HasFeedback(_ context.Context, ticketID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	for _, fb := range f.feedback {
		if fb.TicketID == ticketID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertFeedback(_ context.Context, fb *models.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if fb.ID == "" {
		fb.ID = utils.NewRecordID()
	}
	copied := *fb
	f.feedback = append(f.feedback, &copied)
	return nil
}

func (f *fakeStore) FeedbackSummary(_ context.Context, officeID string) (*models.FeedbackSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	summary := &models.FeedbackSummary{OfficeID: officeID}
	total := decimal.Zero
	for _, fb := range f.feedback {
		if fb.OfficeID != officeID {
			continue
		}
		summary.Count++
		total = total.Add(decimal.NewFromInt(int64(fb.Rating)))
	}
	if summary.Count > 0 {
		summary.AvgRating = total.DivRound(decimal.NewFromInt(int64(summary.Count)), 2)
	}
	return summary, nil
}

func (f *fakeStore) GetOffice(_ context.Context, officeID string) (*models.Office, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	o, ok := f.offices[officeID]
	if !ok {
		return nil, status.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeStore) ListOffices(_ context.Context) ([]models.Office, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	offices := make([]models.Office, 0, len(f.offices))
	for _, o := range f.offices {
		offices = append(offices, *o)
	}
	return offices, nil
}

func (f *fakeStore) FindStudent(_ context.Context, identifier string) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, s := range f.students {
		if s.StudentID == identifier {
			copied := *s
			return &copied, nil
		}
	}
	for _, s := range f.students {
		if s.Email == identifier {
			copied := *s
			return &copied, nil
		}
	}
	return nil, status.ErrNotFound
}

func (f *fakeStore) FindStudentByStudentID(_ context.Context, studentID string) (*models.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, s := range f.students {
		if s.StudentID == studentID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, status.ErrNotFound
}

func (f *fakeStore) InsertStudent(_ context.Context, s *models.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if s.ID == "" {
		s.ID = utils.NewRecordID()
	}
	copied := *s
	f.students[s.ID] = &copied
	return nil
}

func (f *fakeStore) UpdateStudent(_ context.Context, id string, changes map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	s, ok := f.students[id]
	if !ok {
		return status.ErrNotFound
	}
	if v, ok := changes["full_name"].(string); ok {
		s.FullName = v
	}
	if v, ok := changes["year_level"].(string); ok {
		s.YearLevel = v
	}
	if v, ok := changes["password_hash"].(string); ok {
		s.PasswordHash = v
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
