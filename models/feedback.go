package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Feedback struct {
	ID        string    `json:"id" db:"id"`
	OfficeID  string    `json:"office_id" db:"office_id"`
	StudentID string    `json:"student_id" db:"student_id"`
	TicketID  string    `json:"ticket_id" db:"ticket_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FeedbackSummary aggregates ratings for one office. The average keeps two
// decimal places for display.
type FeedbackSummary struct {
	OfficeID  string          `json:"office_id"`
	Count     int             `json:"count"`
	AvgRating decimal.Decimal `json:"avg_rating"`
}
