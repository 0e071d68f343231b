package router

import (
	"net/url"
	"strings"
)

// Route names
const (
	RouteHome              = "home"
	RouteSignup            = "signup"
	RouteLogin             = "login"
	RouteForgottenPassword = "forgotten-password"
	RouteResetPassword     = "reset-password"
	RouteAuthenticated     = "authenticated"
	RouteAdmin             = "admin"
	RouteUser              = "userPage"
	RouteNotFound          = "not-found"
)

// SessionExpiredParam is the login query flag set after a forced logout
const SessionExpiredParam = "sessionExpired"

// Route binds a name and path to an optional guard
type Route struct {
	Name  string
	Path  string
	Guard Guard
}

// Location is a navigation target. Either Name or Path identifies the route.
type Location struct {
	Name  string
	Path  string
	Query url.Values
}

// String renders the location as a path with its query
func (l Location) String() string {
	p := l.Path
	if p == "" {
		p = l.Name
	}
	if len(l.Query) == 0 {
		return p
	}
	return p + "?" + l.Query.Encode()
}

// SessionExpired reports whether the location carries the session-expired flag
func (l Location) SessionExpired() bool {
	return l.Query.Get(SessionExpiredParam) == "true"
}

// ParseLocation accepts a route name ("admin") or a path with an optional
// query ("/login?sessionExpired=true")
func ParseLocation(s string) (Location, error) {
	if !strings.HasPrefix(s, "/") {
		return Location{Name: s}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return Location{}, err
	}
	loc := Location{Path: u.Path}
	if q := u.Query(); len(q) > 0 {
		loc.Query = q
	}
	return loc, nil
}

// DefaultRoutes returns the application's route table
func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteHome, Path: "/"},
		{Name: RouteSignup, Path: "/signup", Guard: RedirectIfAuthenticated},
		{Name: RouteLogin, Path: "/login", Guard: RedirectIfAuthenticated},
		{Name: RouteForgottenPassword, Path: "/forgotten-password", Guard: RedirectIfAuthenticated},
		{Name: RouteResetPassword, Path: "/reset-password", Guard: RedirectIfAuthenticated},
		{Name: RouteAuthenticated, Path: "/authenticated", Guard: RequireAuthenticated},
		{Name: RouteAdmin, Path: "/admin", Guard: AdminGuard},
		{Name: RouteUser, Path: "/user", Guard: UserGuard},
		{Name: RouteNotFound, Path: "/404"},
	}
}
