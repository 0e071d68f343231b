package server

import (
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/auth"
	"github.com/nidhal-dev/authfront/internal/client"
	"github.com/nidhal-dev/authfront/internal/config"
	"github.com/nidhal-dev/authfront/internal/storage"
)

const testPassword = "secret"

// fakeAPI issues tokens for one role and accepts only the latest access token
type fakeAPI struct {
	t *testing.T

	mu            sync.Mutex
	role          string
	access        string
	issued        int
	refreshStatus int
	requests      []string
}

func (f *fakeAPI) issue() string {
	f.issued++
	claims := auth.AccessClaims{
		Role:    f.role,
		Enabled: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ada@example.com",
			ID:        fmt.Sprint(f.issued),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("api-secret"))
	require.NoError(f.t, err)
	f.access = token
	return token
}

func (f *fakeAPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "expired-elsewhere"
}

func (f *fakeAPI) rejectRefresh(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshStatus = status
}

func (f *fakeAPI) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
	f.requests = append(f.requests, r.Method+" "+path)

	switch {
	case path == "auth/authenticate":
		var creds struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != testPassword {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, "Bad credentials")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": f.issue(), "refresh_token": "refresh"})
		return
	case path == "auth/refresh-token":
		if f.refreshStatus != 0 {
			w.WriteHeader(f.refreshStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": f.issue(), "refresh_token": "refresh"})
		return
	case path == "auth/register":
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "User registered successfully")
		return
	case path == "auth/forgot-password":
		_, _ = io.WriteString(w, "Reset password link sent")
		return
	case path == "auth/reset-password":
		_, _ = io.WriteString(w, "Password updated successfully")
		return
	case strings.HasPrefix(path, "auth/enable-user/"):
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusFound)
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+f.access {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, client.ExpiredTokenMessage)
		return
	}

	switch path {
	case "home":
		_, _ = io.WriteString(w, "Hello")
	case "home/user":
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "Hello user")
	case "echo":
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.Copy(w, r.Body)
	case "search":
		_, _ = io.WriteString(w, r.URL.RawQuery)
	case "content-type":
		_, _ = io.WriteString(w, r.Header.Get("Content-Type"))
	case "invalid":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"error":"invalid email"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "No such endpoint")
	}
}

func newTestServer(t *testing.T, role string) (*Server, *fakeAPI) {
	t.Helper()

	api := &fakeAPI{t: t, role: role}
	srv := httptest.NewServer(api)
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

	a, err := app.Open(context.Background(), cfg, zerolog.Nop(), app.WithStorage(storage.NewMemory()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	s, err := New(cfg, a, zerolog.Nop(), "test")
	require.NoError(t, err)
	return s, api
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func loginAs(t *testing.T, s *Server) SessionResponse {
	t.Helper()
	w := do(s, http.MethodPost, "/login", `{"email":"ada@example.com","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	s, _ := newTestServer(t, "ROLE_USER")

	w := do(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestPages_Anonymous(t *testing.T) {
	s, _ := newTestServer(t, "ROLE_ADMIN")

	tests := []struct {
		path     string
		status   int
		location string
	}{
		{path: "/", status: http.StatusOK},
		{path: "/login", status: http.StatusOK},
		{path: "/signup", status: http.StatusOK},
		{path: "/admin", status: http.StatusFound, location: "/"},
		{path: "/user", status: http.StatusFound, location: "/"},
		{path: "/authenticated", status: http.StatusFound, location: "/login"},
		{path: "/nowhere", status: http.StatusFound, location: "/404"},
		{path: "/404", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(s, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}

func TestPage_CarriesQuery(t *testing.T) {
	s, _ := newTestServer(t, "ROLE_USER")

	w := do(s, http.MethodGet, "/login?sessionExpired=true", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Route   string          `json:"route"`
		Path    string          `json:"path"`
		Session SessionResponse `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "login", body.Route)
	assert.Equal(t, "/login?sessionExpired=true", body.Path)
	assert.True(t, body.Session.SessionExpired)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		role     string
		landing  string
		allowed  string
		rejected string
	}{
		{role: "ROLE_ADMIN", landing: "/admin", allowed: "/admin", rejected: "/user"},
		{role: "ROLE_USER", landing: "/user", allowed: "/user", rejected: "/admin"},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			s, _ := newTestServer(t, tt.role)

			resp := loginAs(t, s)
			assert.True(t, resp.IsAuthenticated)
			assert.Equal(t, tt.role, resp.UserRole)
			assert.Equal(t, tt.landing, resp.Location)

			assert.Equal(t, http.StatusOK, do(s, http.MethodGet, tt.allowed, "").Code)
			assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/authenticated", "").Code)

			w := do(s, http.MethodGet, tt.rejected, "")
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/", w.Header().Get("Location"))

			w = do(s, http.MethodGet, "/login", "")
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/", w.Header().Get("Location"))

			// Posting a form the session may not reach answers with See Other
			w = do(s, http.MethodPost, "/login", `{"email":"ada@example.com","password":"`+testPassword+`"}`)
			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, "/", w.Header().Get("Location"))
		})
	}
}

func TestLogin_Invalid(t *testing.T) {
	s, api := newTestServer(t, "ROLE_USER")

	w := do(s, http.MethodPost, "/login", `{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/login", `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, api.seen())

	w = do(s, http.MethodPost, "/login", `{"email":"ada@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Bad credentials")

	w = do(s, http.MethodGet, "/session", "")
	assert.JSONEq(t, `{"isAuthenticated":false,"userRole":"","location":"/login","sessionExpired":false}`, w.Body.String())
}

func TestLogout(t *testing.T) {
	s, _ := newTestServer(t, "ROLE_USER")
	loginAs(t, s)

	w := do(s, http.MethodPost, "/logout", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.IsAuthenticated)
	assert.Empty(t, resp.UserRole)
	assert.Equal(t, "/login", resp.Location)

	w = do(s, http.MethodGet, "/user", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestProxy(t *testing.T) {
	s, api := newTestServer(t, "ROLE_USER")
	loginAs(t, s)

	w := do(s, http.MethodGet, "/api/home/user", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello user", w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))

	w = do(s, http.MethodGet, "/api/search?q=ada&page=2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "q=ada&page=2", w.Body.String())

	w = do(s, http.MethodGet, "/api/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No such endpoint", w.Body.String())

	assert.Equal(t, []string{
		"POST auth/authenticate",
		"GET home/user",
		"GET search",
		"GET missing",
	}, api.seen())
}

func TestProxy_ForwardsContentTypeParameters(t *testing.T) {
	s, _ := newTestServer(t, "ROLE_USER")
	loginAs(t, s)

	for _, contentType := range []string{
		"multipart/form-data; boundary=----authfront42",
		"text/plain; charset=iso-8859-1",
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/content-type", strings.NewReader("payload"))
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, contentType, w.Body.String())
	}
}

func TestProxy_RejectsOversizedBody(t *testing.T) {
	s, api := newTestServer(t, "ROLE_USER")
	loginAs(t, s)

	body := `{"data":"` + strings.Repeat("a", maxProxyBody) + `"}`
	w := do(s, http.MethodPost, "/api/echo", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.NotContains(t, api.seen(), "POST echo")

	// Exactly at the limit still goes through
	body = `{"d":"` + strings.Repeat("a", maxProxyBody-8) + `"}`
	w = do(s, http.MethodPost, "/api/echo", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, len(body), w.Body.Len())
}

func TestProxy_ErrorKeepsContentType(t *testing.T) {
	s, _ := newTestServer(t, "ROLE_USER")
	loginAs(t, s)

	w := do(s, http.MethodPost, "/api/invalid", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"invalid email"}`, w.Body.String())
}

func TestProxy_RefreshesExpiredToken(t *testing.T) {
	s, api := newTestServer(t, "ROLE_USER")
	loginAs(t, s)
	api.expire()

	w := do(s, http.MethodPost, "/api/echo", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"hi"}`, w.Body.String())

	assert.Equal(t, []string{
		"POST auth/authenticate",
		"POST echo",
		"POST auth/refresh-token",
		"POST echo",
	}, api.seen())

	// The refreshed token is now the default
	w = do(s, http.MethodGet, "/api/home/user", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, api.seen(), 5)
}

func TestProxy_RejectedRefreshEndsSession(t *testing.T) {
	s, api := newTestServer(t, "ROLE_ADMIN")
	loginAs(t, s)
	api.expire()
	api.rejectRefresh(http.StatusForbidden)

	w := do(s, http.MethodGet, "/api/home", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?sessionExpired=true", w.Header().Get("Location"))

	var resp SessionResponse
	w = do(s, http.MethodGet, "/session", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.IsAuthenticated)
	assert.True(t, resp.SessionExpired)

	w = do(s, http.MethodGet, "/admin", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestProxy_FailedRefreshKeepsOriginalResponse(t *testing.T) {
	s, api := newTestServer(t, "ROLE_USER")
	loginAs(t, s)
	api.expire()
	api.rejectRefresh(http.StatusInternalServerError)

	w := do(s, http.MethodGet, "/api/home", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, client.ExpiredTokenMessage, w.Body.String())

	w = do(s, http.MethodGet, "/session", "")
	assert.Contains(t, w.Body.String(), `"isAuthenticated":true`)
}

func TestSignup(t *testing.T) {
	s, api := newTestServer(t, "ROLE_USER")

	w := do(s, http.MethodPost, "/signup", `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"pw","confirmPassword":"pw","role":"user"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"User registered successfully"}`, w.Body.String())

	w = do(s, http.MethodPost, "/signup", `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"pw","confirmPassword":"other"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/signup", `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"pw","confirmPassword":"pw","role":"root"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, []string{"POST auth/register"}, api.seen())
}

func TestPasswordForms(t *testing.T) {
	s, _ := newTestServer(t, "ROLE_USER")

	w := do(s, http.MethodPost, "/forgotten-password", `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Reset password link sent"}`, w.Body.String())

	w = do(s, http.MethodPost, "/reset-password", `{"token":"t","password":"pw","passwordConfirm":"pw"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Password updated successfully"}`, w.Body.String())

	w = do(s, http.MethodPost, "/reset-password", `{"token":"t","password":"pw","passwordConfirm":"other"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActivate(t *testing.T) {
	s, api := newTestServer(t, "ROLE_USER")

	w := do(s, http.MethodPost, "/activate/abc", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, []string{"POST auth/enable-user/abc"}, api.seen())
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, "ROLE_USER")

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
