package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jcastano/atelier/internal/models"
	pkglogger "github.com/jcastano/atelier/pkg/logger"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// googleUserInfo is the subset of the userinfo response we consume.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// OAuthService implements the Google sign-in flow: redirect with a state
// token, exchange the callback code, upsert the account, mint a session.
type OAuthService struct {
	oauth       *oauth2.Config
	users       UserRepository
	profiles    ProfileRepository
	sessions    sessionBuilder
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// sessionBuilder is satisfied by AuthService; OAuth reuses its token
// minting instead of duplicating it.
type sessionBuilder interface {
	buildSession(user *models.User) (*models.Session, error)
}

func NewOAuthService(clientID, clientSecret, redirectURL string, users UserRepository, profiles ProfileRepository, authService *AuthService, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *OAuthService {
	return &OAuthService{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		users:       users,
		profiles:    profiles,
		sessions:    authService,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// AuthCodeURL returns the Google consent page URL for the given state.
func (s *OAuthService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// HandleCallback exchanges the authorization code, fetches the Google
// profile and returns a first-party session for the matching account,
// creating it on first sign-in.
func (s *OAuthService) HandleCallback(ctx context.Context, code string) (*models.Session, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Info("oauth code exchange failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		s.logger.Error("failed to fetch google userinfo", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if info.Email == "" {
		s.logger.Warn("google userinfo response missing email")
		return nil, models.ErrUnauthorized
	}

	user, err := s.upsertUser(ctx, info)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.buildSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("oauth sign-in completed", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "oauth_signin_success",
		UserID:    user.ID,
		Success:   true,
	})

	return session, nil
}

func (s *OAuthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := s.oauth.Client(ctx, token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	return &info, nil
}

// upsertUser links the Google identity to an account by email. An existing
// password account gains the verified flag and any missing profile fields;
// a new account is created without a password hash.
func (s *OAuthService) upsertUser(ctx context.Context, info *googleUserInfo) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, info.Email)
	if err == nil {
		changed := false
		if !user.EmailVerified && info.VerifiedEmail {
			user.EmailVerified = true
			changed = true
		}
		if user.Name == "" && info.Name != "" {
			user.Name = info.Name
			changed = true
		}
		if user.AvatarURL == "" && info.Picture != "" {
			user.AvatarURL = info.Picture
			changed = true
		}
		if changed {
			if user, err = s.users.Update(ctx, user.ID, user); err != nil {
				s.logger.Error("failed to update account from oauth profile", slog.Any("error", err))
				return nil, models.ErrInternalServer
			}
		}
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up oauth account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.users.Create(ctx, &models.User{
		Email:         info.Email,
		Name:          info.Name,
		AvatarURL:     info.Picture,
		Provider:      "google",
		EmailVerified: info.VerifiedEmail,
	})
	if err != nil {
		s.logger.Error("failed to create oauth account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, err := s.profiles.GetOrCreate(ctx, created.ID); err != nil {
		s.logger.Warn("failed to create profile for oauth account",
			slog.String("user_id", created.ID), slog.Any("error", err))
	}

	s.auditLogger.LogAccountAction("user_registered_oauth", created.ID, "", nil)
	return created, nil
}
