// Package app assembles the client runtime: storage, token and session
// stores, the router and the API client, in the order they depend on each
// other. The session is loaded before the router evaluates any guard.
package app

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/nidhal-dev/authfront/internal/auth"
	"github.com/nidhal-dev/authfront/internal/client"
	"github.com/nidhal-dev/authfront/internal/config"
	"github.com/nidhal-dev/authfront/internal/router"
	"github.com/nidhal-dev/authfront/internal/session"
	"github.com/nidhal-dev/authfront/internal/storage"
	"github.com/nidhal-dev/authfront/internal/tokens"
)

// App is a running client
type App struct {
	Config   *config.Config
	Tokens   *tokens.Store
	Sessions *session.Store
	Router   *router.Router
	Client   *client.Client

	log   zerolog.Logger
	close func() error
}

// Option configures Open
type Option func(*options)

type options struct {
	storage      storage.Storage
	clientConfig func(*client.Config)
}

// WithStorage uses s instead of the configured backend
func WithStorage(s storage.Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithClientConfig adjusts the API client settings before it is built
func WithClientConfig(fn func(*client.Config)) Option {
	return func(o *options) {
		o.clientConfig = fn
	}
}

// Open builds the runtime from cfg
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	closeFn := func() error { return nil }
	store := o.storage
	if store == nil {
		s, closer, err := storage.Open(cfg.Storage, namespace(cfg.API.URL), log)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
		}
		store, closeFn = s, closer
	}

	a, err := build(ctx, cfg, store, log, o)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	a.close = closeFn
	return a, nil
}

func build(ctx context.Context, cfg *config.Config, store storage.Storage, log zerolog.Logger, o options) (*App, error) {
	tokenStore := tokens.NewStore(store)

	sessions := session.NewStore(store, log)
	if err := sessions.Load(ctx); err != nil {
		return nil, err
	}

	r, err := router.New(sessions, router.DefaultRoutes(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	clientCfg := client.Config{
		BaseURL:        cfg.API.BaseURL(),
		Timeout:        cfg.API.RequestTimeout,
		RefreshTimeout: cfg.API.RefreshTimeout,
	}
	if o.clientConfig != nil {
		o.clientConfig(&clientCfg)
	}

	c, err := client.New(ctx, clientCfg, tokenStore, log, client.WithRefresh(sessions, r))
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return &App{
		Config:   cfg,
		Tokens:   tokenStore,
		Sessions: sessions,
		Router:   r,
		Client:   c,
		log:      log.With().Str("component", "app").Logger(),
	}, nil
}

// Close releases the storage backend
func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// Login authenticates against the API, persists the token pair, makes the new
// access token the client default and marks the session with the role carried
// by the token. It returns the landing location for that role.
func (a *App) Login(ctx context.Context, email, password string) (router.Location, error) {
	pair, err := a.Client.Authenticate(ctx, email, password)
	if err != nil {
		return router.Location{}, fmt.Errorf("login failed: %w", err)
	}

	role, err := auth.RoleFromAccessToken(pair.AccessToken)
	if err != nil {
		return router.Location{}, fmt.Errorf("login failed: %w", err)
	}

	if err := a.Tokens.Save(ctx, pair); err != nil {
		return router.Location{}, fmt.Errorf("failed to save tokens: %w", err)
	}
	a.Client.SetDefaultToken(pair.AccessToken)

	if err := a.Sessions.Login(ctx, role); err != nil {
		return router.Location{}, err
	}

	a.log.Info().Str("email", email).Str("role", string(role)).Msg("Logged in")
	return a.Router.Push(ctx, router.Location{Name: LandingRoute(role)})
}

// Logout drops the token pair and the session, then navigates to login
func (a *App) Logout(ctx context.Context) error {
	if err := a.Tokens.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	a.Client.SetDefaultToken("")

	if err := a.Sessions.Logout(ctx); err != nil {
		return err
	}

	a.log.Info().Msg("Logged out")
	return a.Router.Navigate(ctx, router.RouteLogin, nil)
}

// LandingRoute is the page a freshly logged-in role is sent to
func LandingRoute(role session.Role) string {
	switch role {
	case session.RoleAdmin:
		return router.RouteAdmin
	case session.RoleUser:
		return router.RouteUser
	default:
		return router.RouteHome
	}
}

// namespace keys per-API credentials, so two backends never share tokens
func namespace(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return apiURL
	}
	return u.Host
}
