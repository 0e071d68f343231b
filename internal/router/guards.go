package router

import (
	"github.com/nidhal-dev/authfront/internal/session"
)

// Decision is the single outcome of a guard evaluation
type Decision struct {
	redirect *Location
}

// Allow lets the navigation proceed
var Allow = Decision{}

// Redirect sends the navigation to another location instead
func Redirect(to Location) Decision {
	return Decision{redirect: &to}
}

// Allowed reports whether the navigation may proceed
func (d Decision) Allowed() bool {
	return d.redirect == nil
}

// Target returns the redirect location, if any
func (d Decision) Target() (Location, bool) {
	if d.redirect == nil {
		return Location{}, false
	}
	return *d.redirect, true
}

func (d Decision) String() string {
	if d.redirect == nil {
		return "allow"
	}
	return "redirect " + d.redirect.String()
}

// Guard decides whether a navigation from one location to another may
// proceed for the given session
type Guard func(s session.Session, to, from Location) Decision

// RedirectIfAuthenticated keeps logged-in users away from the login, signup
// and password pages
func RedirectIfAuthenticated(s session.Session, _, _ Location) Decision {
	if s.IsAuthenticated {
		return Redirect(Location{Name: RouteHome})
	}
	return Allow
}

// RequireAuthenticated admits any logged-in user regardless of role
func RequireAuthenticated(s session.Session, _, _ Location) Decision {
	if !s.IsAuthenticated {
		return Redirect(Location{Name: RouteLogin})
	}
	return Allow
}

// RoleGuard admits only logged-in users holding the required role. Everyone
// else, anonymous or not, goes home.
func RoleGuard(required session.Role) Guard {
	return func(s session.Session, _, _ Location) Decision {
		if s.IsAuthenticated && s.Role == required {
			return Allow
		}
		return Redirect(Location{Name: RouteHome})
	}
}

var (
	// AdminGuard admits admins only
	AdminGuard = RoleGuard(session.RoleAdmin)

	// UserGuard admits users only
	UserGuard = RoleGuard(session.RoleUser)
)
