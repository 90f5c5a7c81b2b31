package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/s6ptember/shopfront/pkg/credstore"
	pkgerrors "github.com/s6ptember/shopfront/pkg/errors"
	"github.com/s6ptember/shopfront/pkg/logger"
	"github.com/s6ptember/shopfront/pkg/transport"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newManager(t *testing.T, handler http.Handler) (*Manager, credstore.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := credstore.NewMemoryStore()
	manager := NewManager(store, testLogger())
	client, err := transport.NewClient(srv.URL, manager)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	manager.Bind(client)
	return manager, store
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func loginBackend(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/auth/login/", func(w http.ResponseWriter, req *http.Request) {
		var creds Credentials
		_ = json.NewDecoder(req.Body).Decode(&creds)
		if creds.Password != "correct-horse" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access":  "a1",
			"refresh": "r1",
			"user": map[string]any{
				"id":         1,
				"email":      creds.Email,
				"first_name": "Ada",
				"last_name":  "Lovelace",
			},
		})
	})
	return r
}

func TestLoginInstallsAndPersistsTokens(t *testing.T) {
	manager, store := newManager(t, loginBackend(t))

	err := manager.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if manager.AccessToken() != "a1" {
		t.Fatalf("expected access token installed, got %q", manager.AccessToken())
	}
	if !manager.HasRefreshToken() {
		t.Fatalf("expected refresh token installed")
	}
	if manager.State() != StateAuthenticated {
		t.Fatalf("expected authenticated state, got %s", manager.State())
	}
	if got := manager.UserName(); got != "Ada Lovelace" {
		t.Fatalf("unexpected user name %q", got)
	}

	tokens, _ := store.Tokens()
	if tokens.Access != "a1" || tokens.Refresh != "r1" {
		t.Fatalf("expected both tokens persisted, got %+v", tokens)
	}
}

func TestLoginSurfacesServerMessage(t *testing.T) {
	manager, _ := newManager(t, loginBackend(t))

	err := manager.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "wrong"})
	if err == nil {
		t.Fatalf("expected login failure")
	}
	if got := pkgerrors.MessageOr(err, ""); got != "Invalid credentials" {
		t.Fatalf("expected server message, got %q", got)
	}
	if manager.IsAuthenticated() {
		t.Fatalf("failed login must not authenticate")
	}
}

func TestLoginValidatesInputWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	manager, _ := newManager(t, handler)

	err := manager.Login(context.Background(), Credentials{Email: "not-an-email", Password: "x"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("validation failures must not hit the network")
	}
}

func TestRegisterDoesNotAutoLogin(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/users/register/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
	})
	manager, _ := newManager(t, r)

	msg, err := manager.Register(context.Background(), RegisterInput{
		Email:           "ada@example.com",
		Username:        "ada",
		Password:        "correct-horse",
		PasswordConfirm: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if msg != "User created successfully" {
		t.Fatalf("unexpected message %q", msg)
	}
	if manager.IsAuthenticated() {
		t.Fatalf("register must not authenticate")
	}
}

func TestRegisterRejectsMismatchedPasswords(t *testing.T) {
	manager, _ := newManager(t, chi.NewRouter())

	_, err := manager.Register(context.Background(), RegisterInput{
		Email:           "ada@example.com",
		Username:        "ada",
		Password:        "correct-horse",
		PasswordConfirm: "other-horse",
	})
	if err == nil || !strings.Contains(err.Error(), "password_confirm") {
		t.Fatalf("expected password_confirm validation failure, got %v", err)
	}
}

func TestRefreshRotatesAccessTokenOnly(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/auth/refresh/", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body["refresh"] != "r1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown refresh token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "a2"})
	})
	manager, store := newManager(t, r)
	seedSession(t, manager, store, "a1", "r1")

	if !manager.RefreshAccessToken(context.Background()) {
		t.Fatalf("expected refresh to succeed")
	}
	if manager.AccessToken() != "a2" {
		t.Fatalf("expected rotated token, got %q", manager.AccessToken())
	}
	tokens, _ := store.Tokens()
	if tokens.Access != "a2" || tokens.Refresh != "r1" {
		t.Fatalf("expected persisted rotation, got %+v", tokens)
	}
}

func TestRefreshWithoutTokenIsNoOp(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	manager, _ := newManager(t, handler)

	if manager.RefreshAccessToken(context.Background()) {
		t.Fatalf("refresh without a refresh token must return false")
	}
	if calls.Load() != 0 {
		t.Fatalf("refresh without a token must not hit the network")
	}
}

func TestRejectedRefreshClearsSession(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/auth/refresh/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is invalid"})
	})
	manager, store := newManager(t, r)
	seedSession(t, manager, store, "a1", "r1")

	if manager.RefreshAccessToken(context.Background()) {
		t.Fatalf("rejected refresh must return false")
	}
	if manager.AccessToken() != "" || manager.HasRefreshToken() {
		t.Fatalf("rejected refresh must clear the session")
	}
	tokens, _ := store.Tokens()
	if tokens != (credstore.Tokens{}) {
		t.Fatalf("rejected refresh must clear persisted tokens, got %+v", tokens)
	}
	if manager.State() != StateAnonymous {
		t.Fatalf("expected anonymous state, got %s", manager.State())
	}
}

func TestConcurrentRefreshesShareOneFlight(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Post("/auth/refresh/", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		time.Sleep(30 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{"access": "a2"})
	})
	manager, store := newManager(t, r)
	seedSession(t, manager, store, "a1", "r1")

	start := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = manager.RefreshAccessToken(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected one refresh call shared by all waiters, got %d", calls.Load())
	}
	for i, ok := range results {
		if !ok {
			t.Fatalf("waiter %d did not share the successful result", i)
		}
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	manager, store := newManager(t, chi.NewRouter())
	seedSession(t, manager, store, "a1", "r1")

	manager.Logout(context.Background())
	manager.Logout(context.Background())

	if manager.IsAuthenticated() || manager.HasRefreshToken() {
		t.Fatalf("logout must clear the session")
	}
	tokens, _ := store.Tokens()
	if tokens != (credstore.Tokens{}) {
		t.Fatalf("logout must clear persisted tokens, got %+v", tokens)
	}
}

func TestFetchProfileUnauthenticatedIsNoOp(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	manager, _ := newManager(t, handler)

	if err := manager.FetchProfile(context.Background()); err != nil {
		t.Fatalf("unauthenticated FetchProfile should be a no-op, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("unauthenticated FetchProfile must not hit the network")
	}
}

func TestFetchProfileAuthFailureEndsSession(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/users/profile/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	})
	manager, store := newManager(t, r)
	seedSession(t, manager, store, "a1", "") // no refresh token: recovery cannot save us

	err := manager.FetchProfile(context.Background())
	if err == nil {
		t.Fatalf("expected auth error")
	}
	if manager.IsAuthenticated() {
		t.Fatalf("auth failure during profile fetch must end the session")
	}
}

func TestUpdateProfileInstallsReturnedProfile(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/users/profile/update/", func(w http.ResponseWriter, req *http.Request) {
		var input ProfileUpdate
		_ = json.NewDecoder(req.Body).Decode(&input)
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         1,
			"email":      "ada@example.com",
			"first_name": input.FirstName,
			"last_name":  "Lovelace",
			"profile":    map[string]string{"phone": input.Phone},
		})
	})
	manager, store := newManager(t, r)
	seedSession(t, manager, store, "a1", "r1")

	err := manager.UpdateProfile(context.Background(), ProfileUpdate{FirstName: "Augusta", Phone: "555-0101"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	user := manager.User()
	if user == nil || user.FirstName != "Augusta" {
		t.Fatalf("expected the server's profile installed, got %+v", user)
	}
	if user.Profile == nil || user.Profile.Phone != "555-0101" {
		t.Fatalf("expected contact details installed, got %+v", user.Profile)
	}
	if got := manager.UserName(); got != "Augusta Lovelace" {
		t.Fatalf("UserName = %q", got)
	}
}

func TestUpdateProfileRequiresAuth(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	manager, _ := newManager(t, handler)

	err := manager.UpdateProfile(context.Background(), ProfileUpdate{FirstName: "Augusta"})
	if err == nil {
		t.Fatalf("expected permission error")
	}
	if got := pkgerrors.CodeOf(err); got != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %s", got)
	}
	if calls.Load() != 0 {
		t.Fatalf("unauthenticated update must not hit the network")
	}
}

func TestInitializeValidatesPersistedToken(t *testing.T) {
	var profileCalls atomic.Int32
	r := chi.NewRouter()
	r.Get("/users/profile/", func(w http.ResponseWriter, req *http.Request) {
		profileCalls.Add(1)
		if req.Header.Get("Authorization") != "Bearer a1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "email": "ada@example.com"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	store := credstore.NewMemoryStore()
	if err := store.SetTokens(credstore.Tokens{Access: "a1", Refresh: "r1"}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	manager := NewManager(store, testLogger())
	client, err := transport.NewClient(srv.URL, manager)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	manager.Bind(client)

	if err := manager.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if profileCalls.Load() != 1 {
		t.Fatalf("expected one validating profile fetch, got %d", profileCalls.Load())
	}
	if user := manager.User(); user == nil || user.Email != "ada@example.com" {
		t.Fatalf("expected hydrated profile, got %+v", user)
	}
}

func TestInitializeWithEmptyStoreStaysAnonymous(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	manager, _ := newManager(t, handler)

	if err := manager.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if manager.State() != StateAnonymous {
		t.Fatalf("expected anonymous state, got %s", manager.State())
	}
	if calls.Load() != 0 {
		t.Fatalf("empty store must not trigger any request")
	}
}

func TestTokenExpiry(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiry),
	})
	signed, err := token.SignedString([]byte("not-our-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	got, err := TokenExpiry(signed)
	if err != nil {
		t.Fatalf("TokenExpiry: %v", err)
	}
	if !got.Equal(expiry) {
		t.Fatalf("expected expiry %v, got %v", expiry, got)
	}
	if TokenExpired(signed, time.Now()) {
		t.Fatalf("token should not be expired yet")
	}
	if !TokenExpired(signed, expiry.Add(time.Minute)) {
		t.Fatalf("token should be expired after its exp claim")
	}
	if !TokenExpired("garbage", time.Now()) {
		t.Fatalf("unparseable tokens count as expired")
	}
}

// seedSession installs tokens in memory and in the store the way a prior
// login would have.
func seedSession(t *testing.T, manager *Manager, store credstore.Store, access, refresh string) {
	t.Helper()
	if err := store.SetTokens(credstore.Tokens{Access: access, Refresh: refresh}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	manager.mu.Lock()
	manager.accessToken = access
	manager.refreshToken = refresh
	manager.mu.Unlock()
}
