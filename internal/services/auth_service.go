package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jcastano/atelier/internal/auth"
	"github.com/jcastano/atelier/internal/models"
	pkgauth "github.com/jcastano/atelier/pkg/auth"
	pkglogger "github.com/jcastano/atelier/pkg/logger"
)

// UserRepository defines the account persistence operations the services need
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// TokenRevocationRepository defines the interface for token revocation operations
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// ProfileRepository is the profile persistence boundary. GetOrCreate backs
// the lazy profile row creation on first access.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	GetOrCreate(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, userID string, name, avatarURL string) (*models.Profile, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
	SetAdmin(ctx context.Context, userID string, admin bool) error
}

// AuthService handles authentication business logic
type AuthService struct {
	users       UserRepository
	profiles    ProfileRepository
	revokeRepo  TokenRevocationRepository
	tm          *auth.TokenManager
	email       EmailService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAuthService(users UserRepository, profiles ProfileRepository, revokeRepo TokenRevocationRepository, tm *auth.TokenManager, email EmailService, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:       users,
		profiles:    profiles,
		revokeRepo:  revokeRepo,
		tm:          tm,
		email:       email,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// buildSession mints a token pair for the user. ExpiresAt is epoch seconds,
// matching what clients persist (in milliseconds) and compare locally.
func (s *AuthService) buildSession(user *models.User) (*models.Session, error) {
	accessToken, err := s.tm.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(user)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &models.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.tm.AccessTokenExpiry()).Unix(),
		User: &models.SessionUser{
			ID:            user.ID,
			Email:         user.Email,
			Name:          user.Name,
			AvatarURL:     user.AvatarURL,
			EmailVerified: user.EmailVerified,
			CreatedAt:     user.CreatedAt,
		},
	}, nil
}

// SignIn authenticates with email and password and returns a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("sign-in attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("sign-in failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "signin_failed",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Accounts created through an OAuth provider have no password.
	if user.PasswordHash == "" {
		s.logger.Info("sign-in failed: password auth on oauth-only account", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "signin_failed",
			UserID:        user.ID,
			FailureReason: "oauth_only_account",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("sign-in failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "signin_failed",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}

	session, err := s.buildSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "signin_success",
		UserID:    user.ID,
		Success:   true,
	})

	return session, nil
}

// SignUp creates an account with a profile row and returns a session.
func (s *AuthService) SignUp(ctx context.Context, email, password, name string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("sign-up failed: account already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Provider:     "email",
	}

	createdUser, err := s.users.Create(ctx, user)
	if err != nil {
		s.logger.Error("failed to create user", slog.Any("error", err))
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, models.ErrInternalServer
	}

	// Profile rows are also created lazily on first read; doing it here just
	// saves that round-trip for the common case.
	if _, err := s.profiles.GetOrCreate(ctx, createdUser.ID); err != nil {
		s.logger.Warn("failed to create profile at sign-up",
			slog.String("user_id", createdUser.ID), slog.Any("error", err))
	}

	session, err := s.buildSession(createdUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction("user_registered", createdUser.ID, "", nil)

	return session, nil
}

// GetSession validates an access token and returns a session view built
// from fresh account data. The refresh token is not re-issued on this
// path; callers keep the one they hold.
func (s *AuthService) GetSession(ctx context.Context, accessToken string) (*models.Session, error) {
	claims, err := s.tm.ValidateToken(accessToken)
	if err != nil {
		return nil, models.ErrSessionExpired
	}
	if claims.Type != "access" {
		return nil, models.ErrUnauthorized
	}

	if claims.ID != "" {
		revoked, err := s.revokeRepo.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Error("revocation check failed", slog.Any("error", err))
		} else if revoked {
			return nil, models.ErrTokenRevoked
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for session", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &models.Session{
		AccessToken: accessToken,
		ExpiresAt:   claims.ExpiresAt.Unix(),
		User: &models.SessionUser{
			ID:            user.ID,
			Email:         user.Email,
			Name:          user.Name,
			AvatarURL:     user.AvatarURL,
			EmailVerified: user.EmailVerified,
			CreatedAt:     user.CreatedAt,
		},
	}, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshTokenString string) (*models.Session, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}
	if claims.Type != "refresh" {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	if claims.ID != "" {
		revoked, err := s.revokeRepo.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Error("revocation check failed", slog.Any("error", err))
		} else if revoked {
			return nil, models.ErrTokenRevoked
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found for token refresh", slog.String("user_id", claims.UserID))
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	session, err := s.buildSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))
	return session, nil
}

// SignOut revokes the presented access token.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.tm.ValidateToken(accessToken)
	if err != nil {
		return models.ErrUnauthorized
	}

	expiresAt := claims.ExpiresAt.Time
	if err := s.revokeRepo.RevokeToken(ctx, claims.ID, claims.UserID, claims.Type, expiresAt, "signout"); err != nil {
		s.logger.Error("failed to revoke token", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user signed out", slog.String("user_id", claims.UserID))
	s.auditLogger.LogAccountAction("user_signed_out", claims.UserID, "", nil)
	return nil
}

// resetTokenExpiry bounds how long a password reset link stays usable.
const resetTokenExpiry = time.Hour

// RequestPasswordReset emails a reset link. The response is identical
// whether or not the account exists, so the endpoint cannot be used to
// probe for registered emails.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.ErrBadRequest
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	token, err := s.tm.GenerateResetToken(user, resetTokenExpiry)
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.email.SendPasswordResetEmail(ctx, user.Email, token, time.Now().Add(resetTokenExpiry)); err != nil {
		s.logger.Error("failed to send password reset email", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, "", nil)
	return nil
}

// ConfirmPasswordReset sets a new password using a valid reset token.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.tm.ValidateToken(token)
	if err != nil || claims.Type != "reset" {
		return models.ErrUnauthorized
	}

	if claims.ID != "" {
		revoked, err := s.revokeRepo.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Error("revocation check failed", slog.Any("error", err))
			return models.ErrInternalServer
		}
		if revoked {
			return models.ErrUnauthorized
		}
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePassword(ctx, claims.UserID, hashedPassword); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to update password", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Reset links are single-use: burn the token.
	if err := s.revokeRepo.RevokeToken(ctx, claims.ID, claims.UserID, claims.Type, claims.ExpiresAt.Time, "reset_used"); err != nil {
		s.logger.Warn("failed to revoke used reset token", slog.Any("error", err))
	}

	s.logger.Info("password reset completed", slog.String("user_id", claims.UserID))
	s.auditLogger.LogAccountAction("password_reset_completed", claims.UserID, "", nil)
	return nil
}
