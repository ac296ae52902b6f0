// Package guard decides which screen a navigation actually lands on, based on
// the current session state.
package guard

import "github.com/atinyakov/GophShelf/internal/client/session"

// Route is a client-side navigation target.
type Route string

const (
	Root      Route = "/"
	Login     Route = "/login"
	Signup    Route = "/signup"
	Dashboard Route = "/dashboard"
)

// StateSource reports the session state.
type StateSource interface {
	State() session.State
}

// Guard gates the protected area.
type Guard struct {
	session StateSource
}

// New returns a guard reading from s.
func New(s StateSource) *Guard {
	return &Guard{session: s}
}

// Protected reports whether r requires an authenticated session.
func Protected(r Route) bool {
	return r == Dashboard
}

// Resolve returns where a navigation to r ends up. The session is consulted
// on every call; a logout between two navigations is always observed.
// Unknown routes resolve like Root.
func (g *Guard) Resolve(r Route) Route {
	authed := g.session.State() == session.Authenticated

	switch r {
	case Login, Signup:
		if authed {
			return Dashboard
		}
		return r
	case Dashboard:
		if !authed {
			return Login
		}
		return r
	default:
		if authed {
			return Dashboard
		}
		return Login
	}
}

// Allowed reports whether r can be shown as is.
func (g *Guard) Allowed(r Route) bool {
	return g.Resolve(r) == r
}
