package models

import (
	"time"
)

// ProfileStatus tags a profile's provenance. Optimistic profiles are derived
// from token claims and always report Admin=false; only hydrated profiles
// (read from the profile store) are authoritative for admin gating.
type ProfileStatus string

const (
	ProfileOptimistic ProfileStatus = "optimistic"
	ProfileHydrated   ProfileStatus = "hydrated"
)

type Profile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Admin         bool      `json:"admin"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProfileState pairs a profile with its provenance so consumers can make
// gating decisions on Status rather than inferring freshness from fields.
type ProfileState struct {
	Status  ProfileStatus
	Profile *Profile
}

// IsAdmin reports whether the profile grants admin access. Never true for
// optimistic profiles, regardless of claim contents.
func (ps *ProfileState) IsAdmin() bool {
	return ps != nil && ps.Status == ProfileHydrated && ps.Profile != nil && ps.Profile.Admin
}
