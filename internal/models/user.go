package models

import (
	"time"
)

type User struct {
	ID            string
	Email         string
	PasswordHash  string // NULL for OAuth-only users
	Name          string
	AvatarURL     string
	Provider      string // "email", "google"
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
