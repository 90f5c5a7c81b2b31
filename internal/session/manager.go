// Package session owns the token and user lifecycle: login, refresh, logout,
// profile state. It is the single authority the transport pipeline consults
// for credentials.
package session

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/s6ptember/shopfront/pkg/credstore"
	pkgerrors "github.com/s6ptember/shopfront/pkg/errors"
	"github.com/s6ptember/shopfront/pkg/logger"
	"github.com/s6ptember/shopfront/pkg/validate"
)

const (
	loginPath    = "/auth/login/"
	refreshPath  = "/auth/refresh/"
	registerPath = "/users/register/"
	profilePath  = "/users/profile/"
	profileEdit  = "/users/profile/update/"
)

// API is the subset of the transport client the manager calls. PostOnce must
// bypass the recovery interceptor; everything else goes through the pipeline.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	PostOnce(ctx context.Context, path string, body, out any) error
}

// inflight shares one refresh outcome between concurrent callers.
type inflight struct {
	done chan struct{}
	ok   bool
}

// Manager holds the in-memory session and keeps the credential store in sync.
type Manager struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	user         *UserProfile
	refreshing   *inflight

	store credstore.Store
	api   API
	logg  *logger.Logger
}

// NewManager builds a manager over the given credential store. Bind must be
// called with the transport client before any operation that hits the API.
func NewManager(store credstore.Store, logg *logger.Logger) *Manager {
	return &Manager{store: store, logg: logg}
}

// Bind attaches the API client. Separate from construction because the
// transport and the manager reference each other.
func (m *Manager) Bind(api API) {
	m.api = api
}

// AccessToken returns the held access token, empty when anonymous.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// HasRefreshToken reports whether a refresh is worth attempting.
func (m *Manager) HasRefreshToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshToken != ""
}

// IsAuthenticated reports whether an access token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

// User returns a copy of the current profile, nil when unknown.
func (m *Manager) User() *UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// UserName renders the display name: first+last, falling back to the email.
func (m *Manager) UserName() string {
	user := m.User()
	if user == nil {
		return ""
	}
	full := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if full != "" {
		return full
	}
	return user.Email
}

// State reports the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.refreshing != nil:
		return StateRefreshing
	case m.accessToken != "":
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}

// Login authenticates against the backend. On success it atomically installs
// and persists both tokens plus the user profile.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	if err := validate.Struct(creds); err != nil {
		return err
	}

	var resp loginResponse
	if err := m.api.Post(ctx, loginPath, creds, &resp); err != nil {
		return authFailure(err, "Login failed")
	}
	if resp.Access == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "Invalid response from server")
	}

	m.mu.Lock()
	m.accessToken = resp.Access
	m.refreshToken = resp.Refresh
	user := resp.User
	m.user = &user
	m.mu.Unlock()

	if err := m.store.SetTokens(credstore.Tokens{Access: resp.Access, Refresh: resp.Refresh}); err != nil {
		m.logg.Warn(ctx, "failed to persist tokens: "+err.Error())
	}
	m.logg.Info(m.logg.WithUserEmail(ctx, resp.User.Email), "login successful")
	return nil
}

// Register creates an account. It is stateless relative to the session and
// never auto-logs-in.
func (m *Manager) Register(ctx context.Context, input RegisterInput) (string, error) {
	if err := validate.Struct(input); err != nil {
		return "", err
	}

	var resp registerResponse
	if err := m.api.Post(ctx, registerPath, input, &resp); err != nil {
		return "", authFailure(err, "Registration failed")
	}
	if resp.Message == "" {
		resp.Message = "Registration successful"
	}
	return resp.Message, nil
}

// RefreshAccessToken exchanges the refresh token for a new access token.
// Returns false without side effects when no refresh token is held; on any
// failure it performs a full logout and returns false. Concurrent callers
// share a single in-flight refresh.
func (m *Manager) RefreshAccessToken(ctx context.Context) bool {
	m.mu.Lock()
	if m.refreshToken == "" {
		m.mu.Unlock()
		return false
	}
	if fl := m.refreshing; fl != nil {
		m.mu.Unlock()
		<-fl.done
		return fl.ok
	}
	fl := &inflight{done: make(chan struct{})}
	m.refreshing = fl
	refresh := m.refreshToken
	m.mu.Unlock()

	ok := m.doRefresh(ctx, refresh)

	m.mu.Lock()
	m.refreshing = nil
	m.mu.Unlock()
	fl.ok = ok
	close(fl.done)
	return ok
}

func (m *Manager) doRefresh(ctx context.Context, refresh string) bool {
	var resp refreshResponse
	err := m.api.PostOnce(ctx, refreshPath, map[string]string{"refresh": refresh}, &resp)
	if err != nil || resp.Access == "" {
		m.logg.Warn(ctx, "token refresh failed, clearing session")
		m.Logout(ctx)
		return false
	}

	m.mu.Lock()
	m.accessToken = resp.Access
	m.mu.Unlock()

	if err := m.store.SetAccessToken(resp.Access); err != nil {
		m.logg.Warn(ctx, "failed to persist refreshed token: "+err.Error())
	}
	m.logg.Debug(ctx, "access token refreshed")
	return true
}

// Logout clears the in-memory session and removes both persisted tokens.
// Idempotent; safe to call when already anonymous.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logg.Warn(ctx, "failed to clear persisted tokens: "+err.Error())
	}
}

// FetchProfile loads the current user. No-op when unauthenticated. An auth
// failure here ends the session: refresh is the interceptor's job, not ours.
func (m *Manager) FetchProfile(ctx context.Context) error {
	if !m.IsAuthenticated() {
		return nil
	}

	var user UserProfile
	if err := m.api.Get(ctx, profilePath, nil, &user); err != nil {
		if pkgerrors.IsAuthExpiry(err) {
			m.Logout(ctx)
		}
		return err
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	return nil
}

// UpdateProfile saves profile edits and installs the returned profile.
func (m *Manager) UpdateProfile(ctx context.Context, input ProfileUpdate) error {
	if !m.IsAuthenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "Please sign in to update your profile")
	}

	var user UserProfile
	if err := m.api.Put(ctx, profileEdit, input, &user); err != nil {
		return authFailure(err, "Failed to update profile")
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	return nil
}

// Initialize hydrates the session from the credential store at startup. A
// persisted access token is validated with a profile fetch; there is no
// proactive refresh.
func (m *Manager) Initialize(ctx context.Context) error {
	tokens, err := m.store.Tokens()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading persisted session")
	}

	m.mu.Lock()
	m.accessToken = tokens.Access
	m.refreshToken = tokens.Refresh
	m.mu.Unlock()

	if tokens.Access == "" {
		return nil
	}

	if expiry, err := TokenExpiry(tokens.Access); err == nil {
		ctx = m.logg.WithField(ctx, "token_expiry", expiry)
	}
	m.logg.Info(ctx, "validating persisted session")

	if err := m.FetchProfile(ctx); err != nil {
		m.logg.Warn(ctx, "persisted session rejected: "+err.Error())
	}
	return nil
}

// authFailure keeps the server-supplied message when one exists and falls
// back to a generic message otherwise, preserving the error code. Nothing
// is thrown past this boundary.
func authFailure(err error, fallback string) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fallback)
	}
	if typed.Status() != 0 {
		return typed
	}
	return pkgerrors.Wrap(typed.Code(), err, fallback)
}
