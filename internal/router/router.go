package router

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nidhal-dev/authfront/internal/session"
)

// maxRedirects bounds a redirect chain; the default table never needs more than two hops
const maxRedirects = 8

var (
	ErrUnknownRoute  = errors.New("unknown route")
	ErrRedirectLoop  = errors.New("too many redirects")
	ErrDuplicateName = errors.New("duplicate route name")
)

// SessionSource provides the session snapshot guards evaluate against
type SessionSource interface {
	Snapshot() session.Session
}

// Router resolves navigations through the guard layer and tracks the
// current location. Navigations are serialized.
type Router struct {
	mu        sync.Mutex
	byName    map[string]Route
	byPath    map[string]Route
	routes    []Route
	sessions  SessionSource
	current   Location
	listeners []func(from, to Location)
	log       zerolog.Logger
}

// New creates a router over the given route table, positioned at home
func New(sessions SessionSource, routes []Route, log zerolog.Logger) (*Router, error) {
	r := &Router{
		byName:   make(map[string]Route, len(routes)),
		byPath:   make(map[string]Route, len(routes)),
		routes:   routes,
		sessions: sessions,
		log:      log.With().Str("component", "router").Logger(),
	}
	for _, route := range routes {
		if _, exists := r.byName[route.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, route.Name)
		}
		r.byName[route.Name] = route
		r.byPath[route.Path] = route
	}
	if _, ok := r.byName[RouteNotFound]; !ok {
		return nil, fmt.Errorf("route table has no %s route", RouteNotFound)
	}
	if home, ok := r.byName[RouteHome]; ok {
		r.current = Location{Name: home.Name, Path: home.Path}
	}
	return r, nil
}

// Routes returns the route table
func (r *Router) Routes() []Route {
	return r.routes
}

// Current returns the last location a navigation completed at
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// OnNavigate registers a callback run after every completed navigation
func (r *Router) OnNavigate(fn func(from, to Location)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Match finds the route for a location. Unknown paths fall through to
// not-found; unknown names are an error.
func (r *Router) Match(loc Location) (Route, Location, error) {
	if loc.Name != "" {
		route, ok := r.byName[loc.Name]
		if !ok {
			return Route{}, Location{}, fmt.Errorf("%w: %s", ErrUnknownRoute, loc.Name)
		}
		return route, Location{Name: route.Name, Path: route.Path, Query: loc.Query}, nil
	}

	route, ok := r.byPath[loc.Path]
	if !ok {
		route = r.byName[RouteNotFound]
		return route, Location{Name: route.Name, Path: route.Path}, nil
	}
	return route, Location{Name: route.Name, Path: route.Path, Query: loc.Query}, nil
}

// Resolve evaluates the guard for one hop without navigating
func (r *Router) Resolve(to, from Location) (Location, Decision, error) {
	route, loc, err := r.Match(to)
	if err != nil {
		return Location{}, Decision{}, err
	}
	if route.Guard == nil {
		return loc, Allow, nil
	}
	return loc, route.Guard(r.sessions.Snapshot(), loc, from), nil
}

// Push navigates to a location, following guard redirects, and returns
// where the navigation ended up.
func (r *Router) Push(ctx context.Context, to Location) (Location, error) {
	r.mu.Lock()

	from := r.current
	target := to
	for hop := 0; ; hop++ {
		if err := ctx.Err(); err != nil {
			r.mu.Unlock()
			return Location{}, err
		}
		if hop == maxRedirects {
			r.mu.Unlock()
			return Location{}, fmt.Errorf("%w: navigating to %s", ErrRedirectLoop, to)
		}

		loc, decision, err := r.Resolve(target, from)
		if err != nil {
			r.mu.Unlock()
			return Location{}, err
		}

		next, redirected := decision.Target()
		if !redirected {
			r.current = loc
			listeners := append([]func(from, to Location){}, r.listeners...)
			r.mu.Unlock()

			r.log.Debug().Str("from", from.String()).Str("to", loc.String()).Msg("Navigated")
			for _, fn := range listeners {
				fn(from, loc)
			}
			return loc, nil
		}

		r.log.Warn().Str("requested", loc.String()).Str("redirect", next.String()).Msg("Navigation redirected")
		target = next
	}
}

// Navigate pushes a named route with a query. It lets the HTTP client
// redirect after a forced logout without depending on this package.
func (r *Router) Navigate(ctx context.Context, name string, query url.Values) error {
	_, err := r.Push(ctx, Location{Name: name, Query: query})
	return err
}
