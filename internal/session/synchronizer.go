// Package session tracks an external auth session on the client side:
// it recovers a persisted token bundle, validates it against the backend,
// exposes a loading/user/profile view, and keeps the session fresh via
// activity-triggered revalidation and a keep-alive refresh timer.
package session

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jcastano/atelier/internal/models"
)

// State is the synchronizer's coarse machine state. Authenticated has two
// sub-phases visible through View.Profile.Status: optimistic (profile
// pending) and hydrated (profile ready).
type State string

const (
	StateUninitialized State = "uninitialized"
	StateChecking      State = "checking"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

const (
	initTimeout       = 5 * time.Second
	staleThreshold    = 5 * time.Minute
	keepAliveInterval = 5 * time.Minute
	refreshWindow     = 10 * time.Minute
)

// AuthClient is the external auth boundary. Each call returns a session or
// an error; the synchronizer never fabricates sessions itself.
type AuthClient interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password, name string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetSession(ctx context.Context, accessToken string) (*models.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)
	ResetPasswordForEmail(ctx context.Context, email string) error
}

// ProfileFetcher is the profile store boundary, authoritative for the
// admin flag.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken, userID string) (*models.Profile, error)
}

// View is the state published to consumers. Err records the last
// session-invalidating error; it never blocks the machine from resolving.
// After the init safety timeout, "not loading, no user" must be treated
// as anonymous.
type View struct {
	State   State
	Loading bool
	User    *models.SessionUser
	Profile *models.ProfileState
	Err     string
}

// Config wires the synchronizer's collaborators. Storage, Clock and Logger
// default when nil.
type Config struct {
	Auth      AuthClient
	Profiles  ProfileFetcher
	Storage   Storage
	Scheduler Scheduler
	Clock     Clock
	Logger    *slog.Logger
}

type Synchronizer struct {
	auth     AuthClient
	profiles ProfileFetcher
	store    Storage
	sched    Scheduler
	clock    Clock
	logger   *slog.Logger

	mu         sync.Mutex
	started    bool
	mounted    bool
	view       View
	session    *models.Session
	hydrateSeq uint64
	cancels    []func()
	onChange   func(View)
}

func New(cfg Config) *Synchronizer {
	store := cfg.Storage
	if store == nil {
		store = NewMemoryStorage()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		auth:     cfg.Auth,
		profiles: cfg.Profiles,
		store:    store,
		sched:    cfg.Scheduler,
		clock:    clock,
		logger:   logger,
		view:     View{State: StateUninitialized, Loading: true},
	}
}

// Subscribe registers the single consumer of view updates. Must be called
// before Start.
func (s *Synchronizer) Subscribe(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// View returns a copy of the current published state.
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Start begins the session check. Duplicate calls while started are
// no-ops; Stop resets the guard so each mount cycle gets exactly one
// fresh initialization.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mounted = true
	s.view = View{State: StateChecking, Loading: true}
	s.mu.Unlock()
	s.publish()

	// Safety timeout: clear the loading flag if the check has not resolved,
	// without asserting a definite auth state.
	cancelTimeout := s.sched.After(initTimeout, func() {
		changed := false
		s.mu.Lock()
		if s.mounted && s.view.State == StateChecking && s.view.Loading {
			s.view.Loading = false
			changed = true
			s.logger.Warn("session check timed out, clearing loading flag")
		}
		s.mu.Unlock()
		if changed {
			s.publish()
		}
	})

	cancelActive := s.sched.OnActive(func() {
		s.revalidateIfStale(ctx)
	})

	cancelKeepAlive := s.sched.Every(keepAliveInterval, func() {
		s.keepAlive(ctx)
	})

	s.mu.Lock()
	s.cancels = append(s.cancels, cancelTimeout, cancelActive, cancelKeepAlive)
	s.mu.Unlock()

	go s.checkSession(ctx)
}

// Stop tears down timers and listeners and resets the initialization
// guard. In-flight requests are not aborted; their results are dropped.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	s.started = false
	s.mounted = false
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// SignInWithEmail authenticates and synchronizes state. Errors propagate
// to the caller for inline display.
func (s *Synchronizer) SignInWithEmail(ctx context.Context, email, password string) (*models.Session, error) {
	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.syncState(ctx, sess)
	return sess, nil
}

// SignUpWithEmail registers a new account and synchronizes state.
func (s *Synchronizer) SignUpWithEmail(ctx context.Context, email, password, name string) (*models.Session, error) {
	sess, err := s.auth.SignUp(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	s.syncState(ctx, sess)
	return sess, nil
}

// CompleteOAuth feeds a session obtained from a provider redirect through
// the same synchronization path as a password sign-in.
func (s *Synchronizer) CompleteOAuth(ctx context.Context, sess *models.Session) {
	s.syncState(ctx, sess)
}

// ResetPassword requests a reset email. Errors propagate to the caller.
func (s *Synchronizer) ResetPassword(ctx context.Context, email string) error {
	return s.auth.ResetPasswordForEmail(ctx, email)
}

// SignOut clears in-memory state, the durable token bundle and all
// prefix-matched sync markers, then publishes anonymous. Server-side
// revocation is best-effort; a failure there never leaves the client
// signed in. Safe to call from any state.
func (s *Synchronizer) SignOut(ctx context.Context) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	accessToken := ""
	if sess != nil {
		accessToken = sess.AccessToken
	} else if bundle, ok := LoadTokenBundle(s.store); ok {
		// Not recovered yet (sign-out before or without Start): revoke the
		// durable token rather than leaving it valid until expiry.
		accessToken = bundle.AccessToken
	}

	if accessToken != "" {
		if err := s.auth.SignOut(ctx, accessToken); err != nil {
			s.logger.Error("server sign-out failed", slog.Any("error", err))
		}
	}

	s.mu.Lock()
	s.session = nil
	s.hydrateSeq++ // drop any in-flight hydration
	s.view = View{State: StateAnonymous, Loading: false}
	s.mu.Unlock()

	ClearSessionKeys(s.store)
	s.publish()
}

// checkSession recovers the durable token, short-circuits on local expiry,
// and otherwise confirms the session with the backend.
func (s *Synchronizer) checkSession(ctx context.Context) {
	bundle, ok := LoadTokenBundle(s.store)
	if !ok {
		s.resolveAnonymous("")
		return
	}

	if bundle.ExpiresAt <= s.clock.Now().UnixMilli() {
		// Expired locally: resolve anonymous without a network round-trip.
		_ = s.store.Delete(TokenBundleKey)
		s.resolveAnonymous("")
		return
	}

	sess, err := s.auth.GetSession(ctx, bundle.AccessToken)
	if err != nil {
		s.logger.Info("stored session rejected by backend", slog.Any("error", err))
		s.resolveAnonymous(err.Error())
		return
	}

	s.syncState(ctx, sess)
}

// syncState publishes the authenticated view with an optimistic profile
// immediately, persists the bundle, then hydrates the authoritative
// profile in the background. Each hydration captures a sequence number;
// only the latest issued attempt may apply its result.
func (s *Synchronizer) syncState(ctx context.Context, sess *models.Session) {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	if sess.RefreshToken == "" {
		// The session endpoint echoes the access token but never mints a
		// refresh token; keep the one already held so keep-alive can still
		// rotate the pair.
		if s.session != nil && s.session.RefreshToken != "" {
			sess.RefreshToken = s.session.RefreshToken
		} else if bundle, ok := LoadTokenBundle(s.store); ok {
			sess.RefreshToken = bundle.RefreshToken
		}
	}
	s.session = sess
	s.view = View{
		State:   StateAuthenticated,
		Loading: false,
		User:    sess.User,
		Profile: &models.ProfileState{
			Status:  models.ProfileOptimistic,
			Profile: sess.OptimisticProfile(),
		},
	}
	s.hydrateSeq++
	seq := s.hydrateSeq
	s.mu.Unlock()

	if err := SaveTokenBundle(s.store, &TokenBundle{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt * 1000, // wire seconds -> stored ms
	}); err != nil {
		s.logger.Error("failed to persist token bundle", slog.Any("error", err))
	}
	s.markSynced(sess.User.ID)

	s.publish()

	go s.hydrate(ctx, sess, seq)
}

// hydrate fetches the authoritative profile. Failures are non-fatal: the
// user stays signed in with the optimistic profile and the phase remains
// pending. Stale resolutions (superseded sequence, different user,
// unmounted) are discarded.
func (s *Synchronizer) hydrate(ctx context.Context, sess *models.Session, seq uint64) {
	profile, err := s.profiles.FetchProfile(ctx, sess.AccessToken, sess.User.ID)
	if err != nil {
		s.logger.Warn("profile hydration failed, keeping optimistic profile",
			slog.String("user_id", sess.User.ID),
			slog.Any("error", err))
		return
	}

	optimistic := sess.OptimisticProfile()
	merged := mergeProfiles(profile, optimistic)

	s.mu.Lock()
	stale := !s.mounted || seq != s.hydrateSeq ||
		s.session == nil || s.session.User.ID != sess.User.ID
	if stale {
		s.mu.Unlock()
		return
	}
	s.view.Profile = &models.ProfileState{
		Status:  models.ProfileHydrated,
		Profile: merged,
	}
	s.mu.Unlock()

	nowMS := strconv.FormatInt(s.clock.Now().UnixMilli(), 10)
	if err := s.store.Set(ProfileFetchPrefix+sess.User.ID, nowMS); err != nil {
		s.logger.Warn("failed to record profile fetch marker", slog.Any("error", err))
	}

	s.publish()
}

// mergeProfiles prefers hydrated name/avatar/admin fields, falling back to
// optimistic values when the backend record lacks them. Email-verified and
// creation time come from the session claims.
func mergeProfiles(hydrated, optimistic *models.Profile) *models.Profile {
	merged := &models.Profile{
		ID:            optimistic.ID,
		Email:         optimistic.Email,
		Name:          hydrated.Name,
		AvatarURL:     hydrated.AvatarURL,
		Admin:         hydrated.Admin,
		EmailVerified: optimistic.EmailVerified,
		CreatedAt:     optimistic.CreatedAt,
	}
	if merged.Name == "" {
		merged.Name = optimistic.Name
	}
	if merged.AvatarURL == "" {
		merged.AvatarURL = optimistic.AvatarURL
	}
	if hydrated.Email != "" {
		merged.Email = hydrated.Email
	}
	return merged
}

// revalidateIfStale re-runs the backend round-trip when the per-user sync
// marker is older than the staleness threshold. Fresh sessions no-op.
func (s *Synchronizer) revalidateIfStale(ctx context.Context) {
	s.mu.Lock()
	sess := s.session
	mounted := s.mounted
	s.mu.Unlock()

	if !mounted || sess == nil {
		return
	}

	if !s.isStale(sess.User.ID) {
		return
	}

	refreshed, err := s.auth.GetSession(ctx, sess.AccessToken)
	if err != nil {
		s.logger.Warn("stale-session revalidation failed", slog.Any("error", err))
		return
	}
	s.syncState(ctx, refreshed)
}

// keepAlive proactively refreshes the token when its remaining lifetime
// drops under the refresh window. Failures are logged, never surfaced.
func (s *Synchronizer) keepAlive(ctx context.Context) {
	s.mu.Lock()
	sess := s.session
	mounted := s.mounted
	s.mu.Unlock()

	if !mounted || sess == nil {
		return
	}

	remaining := time.Duration(sess.ExpiresAt-s.clock.Now().Unix()) * time.Second
	if remaining >= refreshWindow {
		return
	}

	refreshed, err := s.auth.RefreshSession(ctx, sess.RefreshToken)
	if err != nil {
		s.logger.Error("keep-alive refresh failed", slog.Any("error", err))
		return
	}
	s.syncState(ctx, refreshed)
}

func (s *Synchronizer) isStale(userID string) bool {
	raw, ok := s.store.Get(AuthSyncPrefix + userID)
	if !ok {
		return true
	}
	lastSync, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true
	}
	return s.clock.Now().UnixMilli()-lastSync > staleThreshold.Milliseconds()
}

func (s *Synchronizer) markSynced(userID string) {
	nowMS := strconv.FormatInt(s.clock.Now().UnixMilli(), 10)
	if err := s.store.Set(AuthSyncPrefix+userID, nowMS); err != nil {
		s.logger.Warn("failed to record sync marker", slog.Any("error", err))
	}
}

func (s *Synchronizer) resolveAnonymous(errMsg string) {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.session = nil
	s.view = View{State: StateAnonymous, Loading: false, Err: errMsg}
	s.mu.Unlock()
	s.publish()
}

func (s *Synchronizer) publish() {
	s.mu.Lock()
	fn := s.onChange
	view := s.view
	s.mu.Unlock()

	if fn != nil {
		fn(view)
	}
}
