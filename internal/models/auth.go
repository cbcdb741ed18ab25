package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims carries the optimistic profile fields alongside identity so a
// client can render an authenticated view without a profile round-trip.
type TokenClaims struct {
	Type          string `json:"type"` // "access" or "refresh"
	UserID        string `json:"user_id"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// SessionUser is the identity snapshot embedded in a Session.
type SessionUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is the auth boundary's currency: a token pair plus expiry.
// ExpiresAt is epoch seconds on the wire; durable client storage converts
// to milliseconds (see session.TokenBundle).
type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    int64        `json:"expires_at"`
	User         *SessionUser `json:"user"`
}

// OptimisticProfile derives a profile from the session's own claims with
// zero extra round-trips. Admin is always false on this path.
func (s *Session) OptimisticProfile() *Profile {
	if s == nil || s.User == nil {
		return nil
	}
	name := s.User.Name
	if name == "" {
		// Same fallback the sign-up form uses: local part of the email.
		for i := 0; i < len(s.User.Email); i++ {
			if s.User.Email[i] == '@' {
				name = s.User.Email[:i]
				break
			}
		}
	}
	return &Profile{
		ID:            s.User.ID,
		Email:         s.User.Email,
		Name:          name,
		AvatarURL:     s.User.AvatarURL,
		Admin:         false,
		EmailVerified: s.User.EmailVerified,
		CreatedAt:     s.User.CreatedAt,
	}
}
