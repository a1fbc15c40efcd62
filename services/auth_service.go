package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"qserveu/config"
	"qserveu/internal/status"
	"qserveu/models"
	"qserveu/store"
	"qserveu/utils"
)

// AuthService implements the login/register capability the queue client
// consumes. Passwords are stored as bcrypt hashes only.
type AuthService struct {
	store  store.Store
	config *config.Config
	logger *slog.Logger
}

func NewAuthService(st store.Store, cfg *config.Config, logger *slog.Logger) *AuthService {
	return &AuthService{store: st, config: cfg, logger: logger}
}

type RegisterInput struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Course    string `json:"course"`
	YearLevel string `json:"year_level"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.Student, error) {
	_, err := s.store.FindStudentByStudentID(ctx, input.StudentID)
	if err == nil {
		return nil, status.ErrStudentExists
	}
	if !errors.Is(err, status.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		StudentID:    input.StudentID,
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: hash,
		Course:       input.Course,
		YearLevel:    input.YearLevel,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.InsertStudent(ctx, student); err != nil {
		return nil, err
	}

	s.logger.Info("student registered", "student_id", student.StudentID)
	return student, nil
}

// Login accepts either the student ID or the email address as identifier and
// returns the student together with a signed session token.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.Student, string, error) {
	student, err := s.store.FindStudent(ctx, identifier)
	if errors.Is(err, status.ErrNotFound) {
		return nil, "", status.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if !utils.VerifyPassword(student.PasswordHash, password) {
		return nil, "", status.ErrInvalidCredentials
	}

	token, _, err := utils.NewAccessToken(s.config.JWTSecret, student.ID, s.config.AccessTokenTTL)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("student logged in", "student_id", student.StudentID)
	return student, token, nil
}

// UpdateProfile changes name and year level, and the password when a
// non-blank one is supplied.
func (s *AuthService) UpdateProfile(ctx context.Context, id, fullName, yearLevel, password string) error {
	changes := map[string]any{
		"full_name":  fullName,
		"year_level": yearLevel,
	}
	if strings.TrimSpace(password) != "" {
		hash, err := utils.HashPassword(password)
		if err != nil {
			return err
		}
		changes["password_hash"] = hash
	}
	return s.store.UpdateStudent(ctx, id, changes)
}
