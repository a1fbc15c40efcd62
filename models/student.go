package models

import "time"

type Student struct {
	ID           string    `json:"id" db:"id"`
	StudentID    string    `json:"student_id" db:"student_id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Course       string    `json:"course" db:"course"`
	YearLevel    string    `json:"year_level" db:"year_level"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
