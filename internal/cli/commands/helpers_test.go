package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/auth"
	"github.com/nidhal-dev/authfront/internal/client"
	"github.com/nidhal-dev/authfront/internal/config"
	"github.com/nidhal-dev/authfront/internal/router"
	"github.com/nidhal-dev/authfront/internal/storage"
)

const testPassword = "secret"

// fakeBackend mimics the API: it issues tokens for one role and accepts only
// the latest access token it handed out
type fakeBackend struct {
	t *testing.T

	mu            sync.Mutex
	role          string
	access        string
	issued        int
	refreshStatus int
	requests      []string
}

func (b *fakeBackend) issue() string {
	b.issued++
	claims := auth.AccessClaims{
		Role:    b.role,
		Enabled: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ada@example.com",
			ID:        fmt.Sprint(b.issued),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("api-secret"))
	require.NoError(b.t, err)
	b.access = token
	return token
}

// expire invalidates the current access token
func (b *fakeBackend) expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = "expired-elsewhere"
}

func (b *fakeBackend) rejectRefresh(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshStatus = status
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
	b.requests = append(b.requests, r.Method+" "+path)

	switch {
	case path == "auth/authenticate":
		var creds struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != testPassword {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": b.issue(), "refresh_token": "refresh"})
		return
	case path == "auth/refresh-token":
		if b.refreshStatus != 0 {
			w.WriteHeader(b.refreshStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": b.issue(), "refresh_token": "refresh"})
		return
	case path == "auth/register":
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "User registered successfully")
		return
	case path == "auth/forgot-password":
		var req struct{ Email string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = io.WriteString(w, "Reset password link sent to user with email "+req.Email)
		return
	case path == "auth/reset-password":
		_, _ = io.WriteString(w, "Password updated successfully")
		return
	case strings.HasPrefix(path, "auth/enable-user/"):
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusFound)
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+b.access {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, client.ExpiredTokenMessage)
		return
	}

	switch {
	case path == "admin/users":
		_ = json.NewEncoder(w).Encode([]client.User{
			{ID: 1, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: "ROLE_ADMIN", Enabled: true, AccountNonLocked: true},
			{ID: 2, FirstName: "Bob", LastName: "Smith", Email: "bob@example.com", Role: "ROLE_USER", Enabled: true},
		})
	case strings.HasPrefix(path, "admin/lock-user/"):
		_, _ = io.WriteString(w, "User locked")
	case path == "home/user":
		_, _ = io.WriteString(w, "Hello user")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBackend) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// newTestEnv wires commands to a fake backend and one in-memory storage that
// outlives each command, the way a real backend outlives the process
func newTestEnv(t *testing.T, role string) (*Env, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{t: t, role: role}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		API: config.APIConfig{
			URL:            srv.URL,
			VersionPrefix:  "/api/v1",
			RequestTimeout: 5 * time.Second,
			RefreshTimeout: time.Second,
		},
		Storage: config.StorageConfig{Backend: storage.BackendMemory},
	}
	backing := storage.NewMemory()

	env := &Env{
		Open: func(ctx context.Context) (*app.App, error) {
			return app.Open(ctx, cfg, zerolog.Nop(), app.WithStorage(backing))
		},
		Password: func(string) (string, error) {
			return testPassword, nil
		},
		SelectRoute: func(*app.App) (string, error) {
			return router.RouteUser, nil
		},
	}
	return env, backend
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return buf.String(), err
}

func login(t *testing.T, env *Env) {
	t.Helper()
	_, err := execute(t, NewLoginCmd(env), "--email", "ada@example.com")
	require.NoError(t, err)
}
