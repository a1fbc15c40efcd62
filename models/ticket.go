package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	StatusWaiting   = "waiting"
	StatusServing   = "serving"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// DefaultPrefix is used when an office has no queue prefix configured.
const DefaultPrefix = "Q"

// MaxOrdinal caps the display ordinal; allocation never goes past it.
const MaxOrdinal = 999

type Ticket struct {
	ID          string     `json:"id" db:"id"`
	StudentID   string     `json:"student_id" db:"student_id"`
	OfficeID    string     `json:"office_id" db:"office_id"`
	Number      string     `json:"queue_number" db:"queue_number"`
	Purpose     string     `json:"purpose" db:"purpose"`
	Status      string     `json:"status" db:"status"`
	Notes       string     `json:"notes" db:"notes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`

	// PeopleAhead and OfficeName are computed per read, never stored.
	PeopleAhead int    `json:"people_ahead" db:"-"`
	OfficeName  string `json:"office_name,omitempty" db:"-"`
}

// Active reports whether the ticket still occupies its display number.
func (t *Ticket) Active() bool {
	return t.Status == StatusWaiting || t.Status == StatusServing
}

// Snapshot converts the ticket into the value the notifier compares per tick.
func (t *Ticket) Snapshot() Snapshot {
	return Snapshot{
		Number:      t.Number,
		Status:      t.Status,
		PeopleAhead: t.PeopleAhead,
		Note:        t.Notes,
	}
}

// FormatNumber builds a display code like "A001" from an office prefix and ordinal.
func FormatNumber(prefix string, ordinal int) string {
	return fmt.Sprintf("%s%03d", prefix, ordinal)
}

// ParseNumber extracts the ordinal from a display code. Codes without the
// given prefix or without a numeric tail are reported as errors; the
// allocator skips them instead of failing.
func ParseNumber(prefix, code string) (int, error) {
	digits := strings.TrimPrefix(code, prefix)
	ordinal, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("queue number %q: %w", code, err)
	}
	return ordinal, nil
}
