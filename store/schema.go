package store

import (
	"context"
	"fmt"
)

// Schema statements for the shared tables. They are idempotent so a fresh
// environment can be brought up with EnsureSchema; production deployments
// manage the same tables through their own migrations.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS offices (
		id           VARCHAR(64)  NOT NULL PRIMARY KEY,
		name         VARCHAR(255) NOT NULL,
		queue_prefix VARCHAR(8)   NOT NULL DEFAULT '',
		wifi_ssid    VARCHAR(255) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id            VARCHAR(64)  NOT NULL PRIMARY KEY,
		student_id    VARCHAR(64)  NOT NULL UNIQUE,
		full_name     VARCHAR(255) NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		course        VARCHAR(255) NOT NULL DEFAULT '',
		year_level    VARCHAR(64)  NOT NULL DEFAULT '',
		created_at    DATETIME     NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS queues (
		id           VARCHAR(64) NOT NULL PRIMARY KEY,
		student_id   VARCHAR(64) NOT NULL,
		office_id    VARCHAR(64) NOT NULL,
		queue_number VARCHAR(16) NOT NULL,
		purpose      VARCHAR(255) NOT NULL DEFAULT '',
		status       VARCHAR(16) NOT NULL,
		notes        VARCHAR(255) NOT NULL DEFAULT '',
		created_at   DATETIME    NOT NULL,
		completed_at DATETIME    NULL,
		cancelled_at DATETIME    NULL,
		INDEX idx_queues_student_created (student_id, created_at),
		INDEX idx_queues_office_status (office_id, status)
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id         VARCHAR(64) NOT NULL PRIMARY KEY,
		office_id  VARCHAR(64) NOT NULL,
		student_id VARCHAR(64) NOT NULL,
		ticket_id  VARCHAR(64) NOT NULL,
		rating     INT         NOT NULL,
		comment    TEXT        NOT NULL,
		created_at DATETIME    NOT NULL,
		INDEX idx_feedback_ticket (ticket_id)
	)`,
}

// EnsureSchema creates the shared tables when they are missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := s.db.NewQuery(stmt).WithContext(ctx).Execute(); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
