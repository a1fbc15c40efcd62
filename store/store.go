package store

import (
	"context"
	"time"

	"qserveu/models"
)

// Store is the remote tabular record store shared by every visitor session
// and by the staff-side dispatcher. All calls are synchronous request/response
// with a bounded timeout imposed by the implementation; a timeout surfaces as
// a store error, never a hang.
type Store interface {
	// Tickets
	ActiveTicket(ctx context.Context, studentID string, since time.Time) (*models.Ticket, error)
	LatestTicket(ctx context.Context, studentID string, since time.Time) (*models.Ticket, error)
	InsertTicket(ctx context.Context, t *models.Ticket) error
	// MarkCancelled flips a waiting ticket to cancelled in one conditional
	// update. The boolean reports whether a row matched; a ticket that is
	// missing, foreign, or no longer waiting is indistinguishable here.
	MarkCancelled(ctx context.Context, ticketID, studentID, note string, at time.Time) (bool, error)
	ActiveNumbers(ctx context.Context, officeID string) ([]string, error)
	FreedNumbersSince(ctx context.Context, officeID string, since time.Time) ([]string, error)
	CountWaiting(ctx context.Context, officeID string) (int, error)
	CountWaitingBefore(ctx context.Context, officeID string, before time.Time) (int, error)
	LatestCompleted(ctx context.Context, studentID string) (*models.Ticket, error)

	// Feedback
	HasFeedback(ctx context.Context, ticketID string) (bool, error)
	InsertFeedback(ctx context.Context, f *models.Feedback) error
	FeedbackSummary(ctx context.Context, officeID string) (*models.FeedbackSummary, error)

	// Offices
	GetOffice(ctx context.Context, officeID string) (*models.Office, error)
	ListOffices(ctx context.Context) ([]models.Office, error)

	// Students
	FindStudent(ctx context.Context, identifier string) (*models.Student, error)
	FindStudentByStudentID(ctx context.Context, studentID string) (*models.Student, error)
	InsertStudent(ctx context.Context, s *models.Student) error
	UpdateStudent(ctx context.Context, id string, changes map[string]any) error
}
