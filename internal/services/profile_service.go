package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jcastano/atelier/internal/models"
)

// ProfileService handles profile reads and writes. Reads are get-or-create:
// a user signing in for the first time through any path always gets a
// profile row back.
type ProfileService struct {
	profiles ProfileRepository
	logger   *slog.Logger
}

func NewProfileService(profiles ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, logger: logger}
}

// Get returns the user's profile, creating an empty non-admin row if none
// exists yet.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// The account itself is gone; nothing to create against.
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get or create profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return profile, nil
}

// Update writes the user-editable fields. The admin flag cannot be
// changed here.
func (s *ProfileService) Update(ctx context.Context, userID, name, avatarURL string) (*models.Profile, error) {
	name = strings.TrimSpace(name)
	avatarURL = strings.TrimSpace(avatarURL)

	// Ensure the row exists before updating; first write may precede
	// first read.
	if _, err := s.profiles.GetOrCreate(ctx, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to ensure profile row", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	profile, err := s.profiles.Update(ctx, userID, name, avatarURL)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("profile updated", slog.String("user_id", userID))
	return profile, nil
}
