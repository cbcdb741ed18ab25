package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcastano/atelier/internal/models"
)

const waitFor = 2 * time.Second

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeScheduler records registrations and lets tests fire them manually.
type fakeScheduler struct {
	mu      sync.Mutex
	actives []func()
	everys  []func()
	afters  []func()
}

func (fs *fakeScheduler) OnActive(fn func()) func() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.actives = append(fs.actives, fn)
	return func() {}
}

func (fs *fakeScheduler) Every(_ time.Duration, fn func()) func() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.everys = append(fs.everys, fn)
	return func() {}
}

func (fs *fakeScheduler) After(_ time.Duration, fn func()) func() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.afters = append(fs.afters, fn)
	return func() {}
}

func (fs *fakeScheduler) fireActive() {
	fs.mu.Lock()
	callbacks := append([]func(){}, fs.actives...)
	fs.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

func (fs *fakeScheduler) fireEvery() {
	fs.mu.Lock()
	callbacks := append([]func(){}, fs.everys...)
	fs.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

func (fs *fakeScheduler) fireAfter() {
	fs.mu.Lock()
	callbacks := append([]func(){}, fs.afters...)
	fs.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

type mockAuthClient struct {
	SignInWithPasswordFunc    func(ctx context.Context, email, password string) (*models.Session, error)
	SignUpFunc                func(ctx context.Context, email, password, name string) (*models.Session, error)
	SignOutFunc               func(ctx context.Context, accessToken string) error
	GetSessionFunc            func(ctx context.Context, accessToken string) (*models.Session, error)
	RefreshSessionFunc        func(ctx context.Context, refreshToken string) (*models.Session, error)
	ResetPasswordForEmailFunc func(ctx context.Context, email string) error
}

func (m *mockAuthClient) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	if m.SignInWithPasswordFunc != nil {
		return m.SignInWithPasswordFunc(ctx, email, password)
	}
	return nil, errors.New("unexpected SignInWithPassword call")
}

func (m *mockAuthClient) SignUp(ctx context.Context, email, password, name string) (*models.Session, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, email, password, name)
	}
	return nil, errors.New("unexpected SignUp call")
}

func (m *mockAuthClient) SignOut(ctx context.Context, accessToken string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	return nil
}

func (m *mockAuthClient) GetSession(ctx context.Context, accessToken string) (*models.Session, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, accessToken)
	}
	return nil, errors.New("unexpected GetSession call")
}

func (m *mockAuthClient) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	if m.RefreshSessionFunc != nil {
		return m.RefreshSessionFunc(ctx, refreshToken)
	}
	return nil, errors.New("unexpected RefreshSession call")
}

func (m *mockAuthClient) ResetPasswordForEmail(ctx context.Context, email string) error {
	if m.ResetPasswordForEmailFunc != nil {
		return m.ResetPasswordForEmailFunc(ctx, email)
	}
	return nil
}

type mockProfileFetcher struct {
	FetchProfileFunc func(ctx context.Context, accessToken, userID string) (*models.Profile, error)
}

func (m *mockProfileFetcher) FetchProfile(ctx context.Context, accessToken, userID string) (*models.Profile, error) {
	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx, accessToken, userID)
	}
	return nil, errors.New("unexpected FetchProfile call")
}

func testSession(userID string, clock Clock, ttl time.Duration) *models.Session {
	return &models.Session{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    clock.Now().Add(ttl).Unix(),
		User: &models.SessionUser{
			ID:            userID,
			Email:         userID + "@example.com",
			Name:          "Test " + userID,
			EmailVerified: true,
		},
	}
}

type harness struct {
	sync  *Synchronizer
	auth  *mockAuthClient
	prof  *mockProfileFetcher
	store *MemoryStorage
	sched *fakeScheduler
	clock *fakeClock
}

func newHarness() *harness {
	h := &harness{
		auth:  &mockAuthClient{},
		prof:  &mockProfileFetcher{},
		store: NewMemoryStorage(),
		sched: &fakeScheduler{},
		clock: newFakeClock(),
	}
	h.sync = New(Config{
		Auth:      h.auth,
		Profiles:  h.prof,
		Storage:   h.store,
		Scheduler: h.sched,
		Clock:     h.clock,
	})
	return h
}

func waitForState(t *testing.T, s *Synchronizer, want State) View {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.View().State == want
	}, waitFor, 5*time.Millisecond)
	return s.View()
}

func waitForProfileStatus(t *testing.T, s *Synchronizer, want models.ProfileStatus) View {
	t.Helper()
	require.Eventually(t, func() bool {
		v := s.View()
		return v.Profile != nil && v.Profile.Status == want
	}, waitFor, 5*time.Millisecond)
	return s.View()
}

func TestStart_NoStoredToken_ResolvesAnonymous(t *testing.T) {
	h := newHarness()

	h.sync.Start(context.Background())
	defer h.sync.Stop()

	view := waitForState(t, h.sync, StateAnonymous)
	assert.False(t, view.Loading)
	assert.Nil(t, view.User)
	assert.Nil(t, view.Profile)
}

func TestStart_StoredToken_RoundTripAuthenticates(t *testing.T) {
	h := newHarness()
	sess := testSession("u1", h.clock, time.Hour)

	require.NoError(t, SaveTokenBundle(h.store, &TokenBundle{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    h.clock.Now().Add(time.Hour).UnixMilli(),
	}))

	h.auth.GetSessionFunc = func(_ context.Context, accessToken string) (*models.Session, error) {
		assert.Equal(t, sess.AccessToken, accessToken)
		return sess, nil
	}
	h.prof.FetchProfileFunc = func(_ context.Context, _, userID string) (*models.Profile, error) {
		return &models.Profile{ID: userID, Email: "u1@example.com", Admin: true}, nil
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()

	view := waitForProfileStatus(t, h.sync, models.ProfileHydrated)
	assert.Equal(t, StateAuthenticated, view.State)
	assert.Equal(t, "u1", view.User.ID)
	assert.True(t, view.Profile.IsAdmin())

	_, hasMarker := h.store.Get(AuthSyncPrefix + "u1")
	assert.True(t, hasMarker)
}

func TestStart_RecoveryKeepsDurableRefreshToken(t *testing.T) {
	h := newHarness()
	sess := testSession("u1", h.clock, time.Hour)
	// The session endpoint validates the access token but never returns a
	// refresh token.
	sess.RefreshToken = ""

	require.NoError(t, SaveTokenBundle(h.store, &TokenBundle{
		AccessToken:  sess.AccessToken,
		RefreshToken: "durable-refresh",
		ExpiresAt:    h.clock.Now().Add(time.Hour).UnixMilli(),
	}))

	h.auth.GetSessionFunc = func(context.Context, string) (*models.Session, error) {
		return sess, nil
	}
	h.prof.FetchProfileFunc = func(_ context.Context, _, userID string) (*models.Profile, error) {
		return &models.Profile{ID: userID, Email: "u1@example.com"}, nil
	}

	var mu sync.Mutex
	var refreshedWith string
	h.auth.RefreshSessionFunc = func(_ context.Context, refreshToken string) (*models.Session, error) {
		mu.Lock()
		refreshedWith = refreshToken
		mu.Unlock()
		return testSession("u1", h.clock, time.Hour), nil
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForProfileStatus(t, h.sync, models.ProfileHydrated)

	// Recovery must not overwrite the stored refresh token with the empty
	// one from the round-trip.
	bundle, ok := LoadTokenBundle(h.store)
	require.True(t, ok)
	assert.Equal(t, "durable-refresh", bundle.RefreshToken)

	// And keep-alive must rotate the pair with the retained token.
	h.clock.Advance(55 * time.Minute)
	h.sched.fireEvery()

	mu.Lock()
	assert.Equal(t, "durable-refresh", refreshedWith)
	mu.Unlock()
}

func TestStart_ExpiredStoredToken_AnonymousWithoutNetwork(t *testing.T) {
	h := newHarness()

	require.NoError(t, SaveTokenBundle(h.store, &TokenBundle{
		AccessToken:  "stale-access",
		RefreshToken: "stale-refresh",
		ExpiresAt:    h.clock.Now().Add(-time.Minute).UnixMilli(),
	}))

	h.auth.GetSessionFunc = func(context.Context, string) (*models.Session, error) {
		t.Error("GetSession must not be called for a locally expired token")
		return nil, errors.New("boom")
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()

	waitForState(t, h.sync, StateAnonymous)

	_, stored := h.store.Get(TokenBundleKey)
	assert.False(t, stored)
}

func TestStart_CorruptStoredToken_ResolvesAnonymous(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.store.Set(TokenBundleKey, "{not json"))

	h.sync.Start(context.Background())
	defer h.sync.Stop()

	waitForState(t, h.sync, StateAnonymous)

	_, stored := h.store.Get(TokenBundleKey)
	assert.False(t, stored)
}

func TestSignIn_PublishesOptimisticBeforeHydrated(t *testing.T) {
	h := newHarness()
	sess := testSession("u1", h.clock, time.Hour)

	release := make(chan struct{})
	h.auth.SignInWithPasswordFunc = func(_ context.Context, email, password string) (*models.Session, error) {
		assert.Equal(t, "u1@example.com", email)
		assert.Equal(t, "hunter22", password)
		return sess, nil
	}
	h.prof.FetchProfileFunc = func(context.Context, string, string) (*models.Profile, error) {
		<-release
		return &models.Profile{ID: "u1", Email: "u1@example.com", Admin: true}, nil
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	got, err := h.sync.SignInWithEmail(context.Background(), "u1@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	// Before hydration completes the profile is claims-derived and must
	// never grant admin.
	view := h.sync.View()
	require.NotNil(t, view.Profile)
	assert.Equal(t, models.ProfileOptimistic, view.Profile.Status)
	assert.False(t, view.Profile.IsAdmin())
	assert.Equal(t, "u1", view.User.ID)

	close(release)
	view = waitForProfileStatus(t, h.sync, models.ProfileHydrated)
	assert.True(t, view.Profile.IsAdmin())
}

func TestSignIn_PersistsTokenBundle(t *testing.T) {
	h := newHarness()
	sess := testSession("u1", h.clock, time.Hour)

	h.auth.SignInWithPasswordFunc = func(context.Context, string, string) (*models.Session, error) {
		return sess, nil
	}
	h.prof.FetchProfileFunc = func(context.Context, string, string) (*models.Profile, error) {
		return &models.Profile{ID: "u1"}, nil
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	_, err := h.sync.SignInWithEmail(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)

	bundle, ok := LoadTokenBundle(h.store)
	require.True(t, ok, "sign-in must persist the token bundle")
	assert.Equal(t, sess.AccessToken, bundle.AccessToken)
	assert.Equal(t, sess.RefreshToken, bundle.RefreshToken)
	assert.Equal(t, sess.ExpiresAt*1000, bundle.ExpiresAt)
}

func TestSignIn_ErrorPropagatesAndStateUnchanged(t *testing.T) {
	h := newHarness()
	h.auth.SignInWithPasswordFunc = func(context.Context, string, string) (*models.Session, error) {
		return nil, errors.New("invalid credentials")
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	_, err := h.sync.SignInWithEmail(context.Background(), "u1@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, StateAnonymous, h.sync.View().State)
}

func TestHydrationFailure_KeepsOptimisticProfile(t *testing.T) {
	h := newHarness()
	sess := testSession("u1", h.clock, time.Hour)

	h.auth.SignInWithPasswordFunc = func(context.Context, string, string) (*models.Session, error) {
		return sess, nil
	}
	fetched := make(chan struct{})
	h.prof.FetchProfileFunc = func(context.Context, string, string) (*models.Profile, error) {
		defer close(fetched)
		return nil, errors.New("profiles unavailable")
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	_, err := h.sync.SignInWithEmail(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)

	select {
	case <-fetched:
	case <-time.After(waitFor):
		t.Fatal("profile fetch never attempted")
	}

	// Still signed in, still pending, still not admin.
	view := h.sync.View()
	assert.Equal(t, StateAuthenticated, view.State)
	require.NotNil(t, view.Profile)
	assert.Equal(t, models.ProfileOptimistic, view.Profile.Status)
	assert.False(t, view.Profile.IsAdmin())
}

func TestSignOut_ClearsEverySessionKey(t *testing.T) {
	h := newHarness()
	sess := testSession("u1", h.clock, time.Hour)

	h.auth.SignInWithPasswordFunc = func(context.Context, string, string) (*models.Session, error) {
		return sess, nil
	}
	h.prof.FetchProfileFunc = func(_ context.Context, _, userID string) (*models.Profile, error) {
		return &models.Profile{ID: userID, Email: "u1@example.com"}, nil
	}
	signedOut := false
	h.auth.SignOutFunc = func(_ context.Context, accessToken string) error {
		signedOut = true
		assert.Equal(t, sess.AccessToken, accessToken)
		return nil
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	_, err := h.sync.SignInWithEmail(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	waitForProfileStatus(t, h.sync, models.ProfileHydrated)

	require.NoError(t, h.store.Set("theme", "dark"))

	h.sync.SignOut(context.Background())

	view := h.sync.View()
	assert.Equal(t, StateAnonymous, view.State)
	assert.Nil(t, view.User)
	assert.Nil(t, view.Profile)
	assert.True(t, signedOut)

	for _, key := range h.store.Keys() {
		assert.NotEqual(t, TokenBundleKey, key)
		assert.NotContains(t, key, AuthSyncPrefix)
		assert.NotContains(t, key, ProfileFetchPrefix)
	}
	_, ok := h.store.Get("theme")
	assert.True(t, ok, "unrelated keys must survive sign-out")
}

func TestSignOut_BeforeStart_RevokesStoredToken(t *testing.T) {
	h := newHarness()

	require.NoError(t, SaveTokenBundle(h.store, &TokenBundle{
		AccessToken:  "durable-access",
		RefreshToken: "durable-refresh",
		ExpiresAt:    h.clock.Now().Add(time.Hour).UnixMilli(),
	}))

	var revoked string
	h.auth.SignOutFunc = func(_ context.Context, accessToken string) error {
		revoked = accessToken
		return nil
	}

	// Sign-out without a recovered session must still revoke the durable
	// token server-side instead of leaving it valid until expiry.
	h.sync.SignOut(context.Background())

	assert.Equal(t, "durable-access", revoked)
	assert.Equal(t, StateAnonymous, h.sync.View().State)
	_, stored := h.store.Get(TokenBundleKey)
	assert.False(t, stored)
}

func TestSignOut_ServerFailureStillClearsLocally(t *testing.T) {
	h := newHarness()
	sess := testSession("u1", h.clock, time.Hour)

	h.auth.SignInWithPasswordFunc = func(context.Context, string, string) (*models.Session, error) {
		return sess, nil
	}
	h.prof.FetchProfileFunc = func(context.Context, string, string) (*models.Profile, error) {
		return &models.Profile{ID: "u1"}, nil
	}
	h.auth.SignOutFunc = func(context.Context, string) error {
		return errors.New("server unreachable")
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	_, err := h.sync.SignInWithEmail(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)

	h.sync.SignOut(context.Background())

	assert.Equal(t, StateAnonymous, h.sync.View().State)
	_, stored := h.store.Get(TokenBundleKey)
	assert.False(t, stored)
}

func TestSafetyTimeout_ClearsLoadingWithoutResolving(t *testing.T) {
	h := newHarness()

	require.NoError(t, SaveTokenBundle(h.store, &TokenBundle{
		AccessToken: "access",
		ExpiresAt:   h.clock.Now().Add(time.Hour).UnixMilli(),
	}))

	hang := make(chan struct{})
	defer close(hang)
	h.auth.GetSessionFunc = func(context.Context, string) (*models.Session, error) {
		<-hang
		return nil, errors.New("too late")
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()

	require.Eventually(t, func() bool {
		return h.sync.View().State == StateChecking
	}, waitFor, 5*time.Millisecond)

	h.sched.fireAfter()

	view := h.sync.View()
	assert.False(t, view.Loading)
	assert.Equal(t, StateChecking, view.State)
	assert.Nil(t, view.User)
}

func TestActivity_RevalidatesOnlyWhenMarkerStale(t *testing.T) {
	h := newHarness()
	sess := testSession("u1", h.clock, 2*time.Hour)

	var getSessions int
	var mu sync.Mutex
	h.auth.SignInWithPasswordFunc = func(context.Context, string, string) (*models.Session, error) {
		return sess, nil
	}
	h.auth.GetSessionFunc = func(context.Context, string) (*models.Session, error) {
		mu.Lock()
		getSessions++
		mu.Unlock()
		return sess, nil
	}
	h.prof.FetchProfileFunc = func(context.Context, string, string) (*models.Profile, error) {
		return &models.Profile{ID: "u1"}, nil
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	_, err := h.sync.SignInWithEmail(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	waitForProfileStatus(t, h.sync, models.ProfileHydrated)

	// Marker is fresh: activity is a no-op.
	h.sched.fireActive()
	mu.Lock()
	assert.Equal(t, 0, getSessions)
	mu.Unlock()

	// Past the staleness threshold the round-trip happens and the marker
	// is rewritten.
	h.clock.Advance(6 * time.Minute)
	h.sched.fireActive()
	mu.Lock()
	assert.Equal(t, 1, getSessions)
	mu.Unlock()

	h.sched.fireActive()
	mu.Lock()
	assert.Equal(t, 1, getSessions)
	mu.Unlock()
}

func TestKeepAlive_RefreshesOnlyNearExpiry(t *testing.T) {
	h := newHarness()
	longLived := testSession("u1", h.clock, 2*time.Hour)

	var refreshes int
	var mu sync.Mutex
	h.auth.SignInWithPasswordFunc = func(context.Context, string, string) (*models.Session, error) {
		return longLived, nil
	}
	h.auth.RefreshSessionFunc = func(_ context.Context, refreshToken string) (*models.Session, error) {
		mu.Lock()
		refreshes++
		mu.Unlock()
		assert.Equal(t, longLived.RefreshToken, refreshToken)
		return testSession("u1", h.clock, 2*time.Hour), nil
	}
	h.prof.FetchProfileFunc = func(context.Context, string, string) (*models.Profile, error) {
		return &models.Profile{ID: "u1"}, nil
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	_, err := h.sync.SignInWithEmail(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	waitForProfileStatus(t, h.sync, models.ProfileHydrated)

	// Plenty of lifetime left: no refresh.
	h.sched.fireEvery()
	mu.Lock()
	assert.Equal(t, 0, refreshes)
	mu.Unlock()

	// Inside the refresh window the token is rotated.
	h.clock.Advance(2*time.Hour - 5*time.Minute)
	h.sched.fireEvery()
	mu.Lock()
	assert.Equal(t, 1, refreshes)
	mu.Unlock()
}

func TestHydration_StaleResolutionIsDropped(t *testing.T) {
	h := newHarness()
	first := testSession("u1", h.clock, time.Hour)
	second := testSession("u2", h.clock, time.Hour)

	releaseFirst := make(chan struct{})
	h.prof.FetchProfileFunc = func(_ context.Context, _, userID string) (*models.Profile, error) {
		if userID == "u1" {
			<-releaseFirst
			return &models.Profile{ID: "u1", Email: "u1@example.com", Admin: true}, nil
		}
		return &models.Profile{ID: "u2", Email: "u2@example.com"}, nil
	}
	sessions := []*models.Session{first, second}
	h.auth.SignInWithPasswordFunc = func(context.Context, string, string) (*models.Session, error) {
		sess := sessions[0]
		sessions = sessions[1:]
		return sess, nil
	}

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	_, err := h.sync.SignInWithEmail(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
	_, err = h.sync.SignInWithEmail(context.Background(), "u2@example.com", "pw")
	require.NoError(t, err)

	waitForProfileStatus(t, h.sync, models.ProfileHydrated)

	// The first sign-in's hydration resolves late; its result must not
	// overwrite the second user's state.
	close(releaseFirst)
	time.Sleep(50 * time.Millisecond)

	view := h.sync.View()
	assert.Equal(t, "u2", view.User.ID)
	assert.Equal(t, "u2", view.Profile.Profile.ID)
	assert.False(t, view.Profile.IsAdmin())
}

func TestStart_DuplicateInitIsNoOp(t *testing.T) {
	h := newHarness()

	var mu sync.Mutex
	var checks int
	h.auth.GetSessionFunc = func(context.Context, string) (*models.Session, error) {
		mu.Lock()
		checks++
		mu.Unlock()
		return nil, errors.New("nope")
	}
	require.NoError(t, SaveTokenBundle(h.store, &TokenBundle{
		AccessToken: "access",
		ExpiresAt:   h.clock.Now().Add(time.Hour).UnixMilli(),
	}))

	ctx := context.Background()
	h.sync.Start(ctx)
	h.sync.Start(ctx)
	waitForState(t, h.sync, StateAnonymous)

	mu.Lock()
	assert.Equal(t, 1, checks)
	mu.Unlock()

	// Teardown resets the guard; the next mount re-initializes.
	h.sync.Stop()
	require.NoError(t, SaveTokenBundle(h.store, &TokenBundle{
		AccessToken: "access",
		ExpiresAt:   h.clock.Now().Add(time.Hour).UnixMilli(),
	}))
	h.sync.Start(ctx)
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	mu.Lock()
	assert.Equal(t, 2, checks)
	mu.Unlock()
}

func TestSubscribe_ReceivesPublishedViews(t *testing.T) {
	h := newHarness()

	var mu sync.Mutex
	var states []State
	h.sync.Subscribe(func(v View) {
		mu.Lock()
		states = append(states, v.State)
		mu.Unlock()
	})

	h.sync.Start(context.Background())
	defer h.sync.Stop()
	waitForState(t, h.sync, StateAnonymous)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) >= 2
	}, waitFor, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, StateChecking, states[0])
	assert.Equal(t, StateAnonymous, states[len(states)-1])
}
