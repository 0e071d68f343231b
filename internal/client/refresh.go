package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/nidhal-dev/authfront/internal/router"
	"github.com/nidhal-dev/authfront/internal/tokens"
)

const (
	// RefreshPath is the refresh endpoint, relative to the API root
	RefreshPath = "/auth/refresh-token"

	// ExpiredTokenMessage is the exact 401 body the API sends for an expired access token
	ExpiredTokenMessage = "Access token expired"

	// bodyPeekLimit bounds how much of a 401 body is read to look for the
	// expiry message; the rest is left for the caller
	bodyPeekLimit = 4096
)

// SessionResetter logs the session out when the refresh token is rejected
type SessionResetter interface {
	Logout(ctx context.Context) error
}

// Navigator moves the application to a named route
type Navigator interface {
	Navigate(ctx context.Context, name string, query url.Values) error
}

// RefreshError is a failed refresh round-trip
type RefreshError struct {
	StatusCode int // zero when the request itself failed
	Err        error
}

func (e *RefreshError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token refresh failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// RefreshTransport is an http.RoundTripper that recovers from an expired
// access token. On a 401 carrying ExpiredTokenMessage it exchanges the
// refresh token for a new access token and retries the request once with the
// new token. Concurrent expiries share one refresh.
type RefreshTransport struct {
	Base       http.RoundTripper
	RefreshURL string
	Timeout    time.Duration
	Tokens     *tokens.Store
	Sessions   SessionResetter
	Navigator  Navigator

	// OnRefreshed is called with every new access token
	OnRefreshed func(token string)

	Log zerolog.Logger

	group singleflight.Group
}

// RoundTrip implements http.RoundTripper
func (t *RefreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	expired, err := isExpiredTokenResponse(resp)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !expired {
		return resp, nil
	}

	token, err := t.refresh(req.Context())
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			resp.Body.Close()
			return nil, err
		}
		t.Log.Warn().Err(err).Str("path", req.URL.Path).Msg("Token refresh failed")
		return resp, nil
	}

	retry, ok := cloneWithToken(req, token)
	if !ok {
		t.Log.Warn().Str("path", req.URL.Path).Msg("Request body cannot be replayed, skipping retry")
		return resp, nil
	}
	resp.Body.Close()

	t.Log.Debug().Str("path", req.URL.Path).Msg("Retrying request with refreshed token")
	return t.base().RoundTrip(retry)
}

func (t *RefreshTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// refresh returns a fresh access token. Callers that arrive while a refresh
// is in flight wait for its result.
func (t *RefreshTransport) refresh(ctx context.Context) (string, error) {
	// The shared refresh must not die with the first caller's request
	ctx = context.WithoutCancel(ctx)

	ch := t.group.DoChan("refresh", func() (any, error) {
		return t.refreshOnce(ctx)
	})
	res := <-ch
	if res.Err != nil {
		return "", res.Err
	}
	return res.Val.(string), nil
}

func (t *RefreshTransport) refreshOnce(ctx context.Context) (string, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	refreshToken, err := t.Tokens.RefreshToken(ctx)
	if err != nil {
		return "", &RefreshError{Err: err}
	}
	if refreshToken == "" {
		return "", &RefreshError{Err: errors.New("no refresh token stored")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.RefreshURL, http.NoBody)
	if err != nil {
		return "", &RefreshError{Err: err}
	}
	(&oauth2.Token{AccessToken: refreshToken}).SetAuthHeader(req)

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return "", &RefreshError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		refreshErr := &RefreshError{StatusCode: resp.StatusCode}
		t.expireSession(ctx)
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, refreshErr)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", &RefreshError{StatusCode: resp.StatusCode}
	}

	var body refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &RefreshError{Err: fmt.Errorf("failed to decode refresh response: %w", err)}
	}
	if body.AccessToken == "" {
		return "", &RefreshError{Err: errors.New("refresh response has no access_token")}
	}

	if err := t.Tokens.SetAccessToken(ctx, body.AccessToken); err != nil {
		return "", &RefreshError{Err: err}
	}
	if t.OnRefreshed != nil {
		t.OnRefreshed(body.AccessToken)
	}

	t.Log.Info().Msg("Access token refreshed")
	return body.AccessToken, nil
}

// expireSession drops all credentials and sends the user to the login page
func (t *RefreshTransport) expireSession(ctx context.Context) {
	t.Log.Warn().Msg("Refresh token rejected, ending session")

	if err := t.Tokens.Clear(ctx); err != nil {
		t.Log.Error().Err(err).Msg("Failed to clear tokens")
	}
	if t.OnRefreshed != nil {
		t.OnRefreshed("")
	}
	if t.Sessions != nil {
		if err := t.Sessions.Logout(ctx); err != nil {
			t.Log.Error().Err(err).Msg("Failed to log out session")
		}
	}
	if t.Navigator != nil {
		query := url.Values{router.SessionExpiredParam: {"true"}}
		if err := t.Navigator.Navigate(ctx, router.RouteLogin, query); err != nil {
			t.Log.Error().Err(err).Msg("Failed to navigate to login")
		}
	}
}

// isExpiredTokenResponse reports whether resp is a 401 whose body is exactly
// ExpiredTokenMessage. The body stays readable in full.
func isExpiredTokenResponse(resp *http.Response) (bool, error) {
	if resp.StatusCode != http.StatusUnauthorized || resp.Body == nil {
		return false, nil
	}

	peek, err := io.ReadAll(io.LimitReader(resp.Body, bodyPeekLimit+1))
	if err != nil {
		return false, err
	}
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(peek), resp.Body), resp.Body}

	return string(peek) == ExpiredTokenMessage, nil
}

// cloneWithToken copies req for a retry, overriding only its Authorization
// header. It fails when the body cannot be replayed.
func cloneWithToken(req *http.Request, token string) (*http.Request, bool) {
	retry := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, false
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, false
		}
		retry.Body = body
	}
	(&oauth2.Token{AccessToken: token}).SetAuthHeader(retry)
	return retry, true
}
