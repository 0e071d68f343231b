package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nidhal-dev/authfront/internal/tokens"
)

// User is an account as listed by the admin endpoints
type User struct {
	ID               int64  `json:"id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	Enabled          bool   `json:"enabled"`
	AccountNonLocked bool   `json:"accountNonLocked"`
}

// RegisterRequest is the signup payload
type RegisterRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role,omitempty"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// Authenticate exchanges credentials for a token pair. It does not touch the
// token store or the default token; the login flow does that.
func (c *Client) Authenticate(ctx context.Context, email, password string) (tokens.Pair, error) {
	var pair tokens.Pair
	_, err := c.send(withoutAuth(ctx), http.MethodPost, "auth/authenticate", credentials{Email: email, Password: password}, &pair)
	return pair, err
}

// Register creates an account. The API answers with a confirmation message.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	return c.send(withoutAuth(ctx), http.MethodPost, "auth/register", req, nil)
}

// EnableUser activates an account from its activation token. The API answers
// with a redirect to its login page on success.
func (c *Client) EnableUser(ctx context.Context, token string) error {
	_, err := c.send(withoutAuth(ctx), http.MethodPost, "auth/enable-user/"+url.PathEscape(token), nil, nil,
		http.StatusOK, http.StatusFound)
	return err
}

// ForgotPassword asks the API to mail a reset link
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	return c.send(withoutAuth(ctx), http.MethodPost, "auth/forgot-password", emailRequest{Email: email}, nil)
}

// ResetPassword sets a new password from a reset link token
func (c *Client) ResetPassword(ctx context.Context, token, password, confirm string) (string, error) {
	return c.send(withoutAuth(ctx), http.MethodPost, "auth/reset-password",
		resetPasswordRequest{Token: token, Password: password, PasswordConfirm: confirm}, nil)
}

func (c *Client) Home(ctx context.Context) (string, error) {
	return c.send(ctx, http.MethodGet, "home", nil, nil)
}

func (c *Client) HomeUser(ctx context.Context) (string, error) {
	return c.send(ctx, http.MethodGet, "home/user", nil, nil)
}

func (c *Client) HomeAdmin(ctx context.Context) (string, error) {
	return c.send(ctx, http.MethodGet, "home/admin", nil, nil)
}

// UserGreeting calls the user-only endpoint
func (c *Client) UserGreeting(ctx context.Context) (string, error) {
	return c.send(ctx, http.MethodGet, "user", nil, nil)
}

// AdminGreeting calls the admin-only endpoint
func (c *Client) AdminGreeting(ctx context.Context) (string, error) {
	return c.send(ctx, http.MethodGet, "admin", nil, nil)
}

// ListUsers lists every account
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	return c.listUsers(ctx, "admin/users")
}

// ListLockedUsers lists accounts that are locked
func (c *Client) ListLockedUsers(ctx context.Context) ([]User, error) {
	return c.listUsers(ctx, "admin/locked-users")
}

// ListUnlockedUsers lists accounts that are not locked
func (c *Client) ListUnlockedUsers(ctx context.Context) ([]User, error) {
	return c.listUsers(ctx, "admin/unlocked-users")
}

func (c *Client) listUsers(ctx context.Context, path string) ([]User, error) {
	var users []User
	if _, err := c.send(ctx, http.MethodGet, path, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes an account
func (c *Client) DeleteUser(ctx context.Context, email string) (string, error) {
	return c.send(ctx, http.MethodDelete, "admin/users/"+url.PathEscape(email), nil, nil)
}

// LockUser locks an account
func (c *Client) LockUser(ctx context.Context, email string) (string, error) {
	return c.send(ctx, http.MethodPost, "admin/lock-user/"+url.PathEscape(email), nil, nil)
}

// UnlockUser unlocks an account
func (c *Client) UnlockUser(ctx context.Context, email string) (string, error) {
	return c.send(ctx, http.MethodPost, "admin/unlock-user/"+url.PathEscape(email), nil, nil)
}
