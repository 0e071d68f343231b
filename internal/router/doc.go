// Package router is the route guard layer. Every navigation is evaluated
// against the current session before it completes, and every guard returns
// exactly one Decision: Allow, or Redirect to another location. Denial is
// never an error.
//
// Route table:
//
//	home               /                    open
//	signup             /signup              RedirectIfAuthenticated
//	login              /login               RedirectIfAuthenticated
//	forgotten-password /forgotten-password  RedirectIfAuthenticated
//	reset-password     /reset-password      RedirectIfAuthenticated
//	authenticated      /authenticated       RequireAuthenticated
//	admin              /admin               AdminGuard
//	userPage           /user                UserGuard
//	not-found          /404                 open
//
// Any other path resolves to not-found.
package router
