package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"

	"qserveu/internal/status"
	"qserveu/models"
	"qserveu/utils"
)

// SQLStore talks to the shared MySQL store through dbx. Every call runs with
// a bounded timeout so a hung remote never blocks a visitor action.
type SQLStore struct {
	db      *dbx.DB
	timeout time.Duration
	logger  *slog.Logger
}

func New(dsn string, timeout time.Duration, logger *slog.Logger) (*SQLStore, error) {
	db, err := dbx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	db.DB().SetMaxOpenConns(20)
	db.DB().SetMaxIdleConns(5)
	db.DB().SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.DB().PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}

	return &SQLStore{db: db, timeout: timeout, logger: logger}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ticketRow mirrors the queues table plus the joined office name.
type ticketRow struct {
	ID          string         `db:"id"`
	StudentID   string         `db:"student_id"`
	OfficeID    string         `db:"office_id"`
	Number      string         `db:"queue_number"`
	Purpose     string         `db:"purpose"`
	Status      string         `db:"status"`
	Notes       string         `db:"notes"`
	CreatedAt   time.Time      `db:"created_at"`
	CompletedAt sql.NullTime   `db:"completed_at"`
	CancelledAt sql.NullTime   `db:"cancelled_at"`
	OfficeName  sql.NullString `db:"office_name"`
}

func (r *ticketRow) ticket() *models.Ticket {
	t := &models.Ticket{
		ID:         r.ID,
		StudentID:  r.StudentID,
		OfficeID:   r.OfficeID,
		Number:     r.Number,
		Purpose:    r.Purpose,
		Status:     r.Status,
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt,
		OfficeName: r.OfficeName.String,
	}
	if r.CompletedAt.Valid {
		at := r.CompletedAt.Time
		t.CompletedAt = &at
	}
	if r.CancelledAt.Valid {
		at := r.CancelledAt.Time
		t.CancelledAt = &at
	}
	return t
}

func (s *SQLStore) ActiveTicket(ctx context.Context, studentID string, since time.Time) (*models.Ticket, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var row ticketRow
	err := s.db.Select("q.*", "o.name office_name").
		From("queues q").
		LeftJoin("offices o", dbx.NewExp("o.id = q.office_id")).
		Where(dbx.HashExp{"q.student_id": studentID}).
		AndWhere(dbx.In("q.status", models.StatusWaiting, models.StatusServing)).
		AndWhere(dbx.NewExp("q.created_at >= {:since}", dbx.Params{"since": since})).
		OrderBy("q.created_at DESC").
		Limit(1).
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, status.StoreError("active ticket", err)
	}
	return row.ticket(), nil
}

func (s *SQLStore) LatestTicket(ctx context.Context, studentID string, since time.Time) (*models.Ticket, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var row ticketRow
	err := s.db.Select("q.*", "o.name office_name").
		From("queues q").
		LeftJoin("offices o", dbx.NewExp("o.id = q.office_id")).
		Where(dbx.HashExp{"q.student_id": studentID}).
		AndWhere(dbx.NewExp("q.created_at >= {:since}", dbx.Params{"since": since})).
		OrderBy("q.created_at DESC").
		Limit(1).
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, status.StoreError("latest ticket", err)
	}
	return row.ticket(), nil
}

func (s *SQLStore) InsertTicket(ctx context.Context, t *models.Ticket) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if t.ID == "" {
		t.ID = utils.NewRecordID()
	}
	_, err := s.db.Insert("queues", dbx.Params{
		"id":           t.ID,
		"student_id":   t.StudentID,
		"office_id":    t.OfficeID,
		"queue_number": t.Number,
		"purpose":      t.Purpose,
		"status":       t.Status,
		"notes":        t.Notes,
		"created_at":   t.CreatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return status.StoreError("insert ticket", err)
	}
	return nil
}

func (s *SQLStore) MarkCancelled(ctx context.Context, ticketID, studentID, note string, at time.Time) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.db.Update("queues", dbx.Params{
		"status":       models.StatusCancelled,
		"cancelled_at": at,
		"notes":        note,
	}, dbx.HashExp{
		"id":         ticketID,
		"student_id": studentID,
		"status":     models.StatusWaiting,
	}).WithContext(ctx).Execute()
	if err != nil {
		return false, status.StoreError("cancel ticket", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, status.StoreError("cancel ticket", err)
	}
	return n > 0, nil
}

func (s *SQLStore) ActiveNumbers(ctx context.Context, officeID string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var numbers []string
	err := s.db.Select("queue_number").
		From("queues").
		Where(dbx.HashExp{"office_id": officeID}).
		AndWhere(dbx.In("status", models.StatusWaiting, models.StatusServing)).
		WithContext(ctx).
		Column(&numbers)
	if err != nil {
		return nil, status.StoreError("active numbers", err)
	}
	return numbers, nil
}

func (s *SQLStore) FreedNumbersSince(ctx context.Context, officeID string, since time.Time) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var numbers []string
	err := s.db.Select("queue_number").
		From("queues").
		Where(dbx.HashExp{"office_id": officeID}).
		AndWhere(dbx.Or(
			dbx.And(
				dbx.HashExp{"status": models.StatusCompleted},
				dbx.NewExp("completed_at > {:since}", dbx.Params{"since": since}),
			),
			dbx.And(
				dbx.HashExp{"status": models.StatusCancelled},
				dbx.NewExp("cancelled_at > {:since}", dbx.Params{"since": since}),
			),
		)).
		WithContext(ctx).
		Column(&numbers)
	if err != nil {
		return nil, status.StoreError("freed numbers", err)
	}
	return numbers, nil
}

func (s *SQLStore) CountWaiting(ctx context.Context, officeID string) (int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var count int
	err := s.db.Select("COUNT(*)").
		From("queues").
		Where(dbx.HashExp{"office_id": officeID, "status": models.StatusWaiting}).
		WithContext(ctx).
		Row(&count)
	if err != nil {
		return 0, status.StoreError("count waiting", err)
	}
	return count, nil
}

func (s *SQLStore) CountWaitingBefore(ctx context.Context, officeID string, before time.Time) (int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var count int
	err := s.db.Select("COUNT(*)").
		From("queues").
		Where(dbx.HashExp{"office_id": officeID, "status": models.StatusWaiting}).
		AndWhere(dbx.NewExp("created_at < {:before}", dbx.Params{"before": before})).
		WithContext(ctx).
		Row(&count)
	if err != nil {
		return 0, status.StoreError("count waiting before", err)
	}
	return count, nil
}

func (s *SQLStore) LatestCompleted(ctx context.Context, studentID string) (*models.Ticket, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var row ticketRow
	err := s.db.Select("q.*", "o.name office_name").
		From("queues q").
		LeftJoin("offices o", dbx.NewExp("o.id = q.office_id")).
		Where(dbx.HashExp{"q.student_id": studentID, "q.status": models.StatusCompleted}).
		OrderBy("q.created_at DESC").
		Limit(1).
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, status.StoreError("latest completed", err)
	}
	return row.ticket(), nil
}

func (s *SQLStore) HasFeedback(ctx context.Context, ticketID string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var count int
	err := s.db.Select("COUNT(*)").
		From("feedback").
		Where(dbx.HashExp{"ticket_id": ticketID}).
		WithContext(ctx).
		Row(&count)
	if err != nil {
		return false, status.StoreError("has feedback", err)
	}
	return count > 0, nil
}

func (s *SQLStore) InsertFeedback(ctx context.Context, f *models.Feedback) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if f.ID == "" {
		f.ID = utils.NewRecordID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Insert("feedback", dbx.Params{
		"id":         f.ID,
		"office_id":  f.OfficeID,
		"student_id": f.StudentID,
		"ticket_id":  f.TicketID,
		"rating":     f.Rating,
		"comment":    f.Comment,
		"created_at": f.CreatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return status.StoreError("insert feedback", err)
	}
	return nil
}

func (s *SQLStore) FeedbackSummary(ctx context.Context, officeID string) (*models.FeedbackSummary, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		count int
		avg   sql.NullFloat64
	)
	err := s.db.Select("COUNT(*)", "AVG(rating)").
		From("feedback").
		Where(dbx.HashExp{"office_id": officeID}).
		WithContext(ctx).
		Row(&count, &avg)
	if err != nil {
		return nil, status.StoreError("feedback summary", err)
	}
	return &models.FeedbackSummary{
		OfficeID:  officeID,
		Count:     count,
		AvgRating: decimal.NewFromFloat(avg.Float64).Round(2),
	}, nil
}

func (s *SQLStore) GetOffice(ctx context.Context, officeID string) (*models.Office, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var office models.Office
	err := s.db.Select("id", "name", "queue_prefix", "wifi_ssid").
		From("offices").
		Where(dbx.HashExp{"id": officeID}).
		WithContext(ctx).
		One(&office)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, status.StoreError("get office", err)
	}
	return &office, nil
}

func (s *SQLStore) ListOffices(ctx context.Context) ([]models.Office, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var offices []models.Office
	err := s.db.Select("id", "name", "queue_prefix", "wifi_ssid").
		From("offices").
		OrderBy("name ASC").
		WithContext(ctx).
		All(&offices)
	if err != nil {
		return nil, status.StoreError("list offices", err)
	}
	return offices, nil
}

// FindStudent looks the identifier up as a student ID first and falls back to
// email, so either works on the login form.
func (s *SQLStore) FindStudent(ctx context.Context, identifier string) (*models.Student, error) {
	student, err := s.findStudentBy(ctx, "student_id", identifier)
	if errors.Is(err, status.ErrNotFound) {
		return s.findStudentBy(ctx, "email", identifier)
	}
	return student, err
}

func (s *SQLStore) FindStudentByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	return s.findStudentBy(ctx, "student_id", studentID)
}

func (s *SQLStore) findStudentBy(ctx context.Context, column, value string) (*models.Student, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var student models.Student
	err := s.db.Select("id", "student_id", "full_name", "email", "password_hash", "course", "year_level", "created_at").
		From("students").
		Where(dbx.HashExp{column: value}).
		Limit(1).
		WithContext(ctx).
		One(&student)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, status.StoreError("find student", err)
	}
	return &student, nil
}

func (s *SQLStore) InsertStudent(ctx context.Context, st *models.Student) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if st.ID == "" {
		st.ID = utils.NewRecordID()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Insert("students", dbx.Params{
		"id":            st.ID,
		"student_id":    st.StudentID,
		"full_name":     st.FullName,
		"email":         st.Email,
		"password_hash": st.PasswordHash,
		"course":        st.Course,
		"year_level":    st.YearLevel,
		"created_at":    st.CreatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return status.StoreError("insert student", err)
	}
	return nil
}

func (s *SQLStore) UpdateStudent(ctx context.Context, id string, changes map[string]any) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	params := dbx.Params{}
	for k, v := range changes {
		params[k] = v
	}
	_, err := s.db.Update("students", params, dbx.HashExp{"id": id}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return status.StoreError("update student", err)
	}
	return nil
}
