// Package routes is the client's screen map and its deterministic navigation
// guard. Guard decisions are synchronous and side-effect free.
package routes

// Known screens.
const (
	Home       = "/"
	Login      = "/login"
	Onboarding = "/onboarding"
	Dashboard  = "/dashboard"
	Send       = "/send"
	Receive    = "/receive"
	Settings   = "/settings"
)

var protected = map[string]bool{
	Onboarding: true,
	Dashboard:  true,
	Send:       true,
	Receive:    true,
	Settings:   true,
}

var known = map[string]bool{
	Home:       true,
	Login:      true,
	Onboarding: true,
	Dashboard:  true,
	Send:       true,
	Receive:    true,
	Settings:   true,
}

// IsProtected reports whether a route requires a session.
func IsProtected(route string) bool { return protected[route] }

// Known reports whether a route maps to a screen at all.
func Known(route string) bool { return known[route] }

// Outcome enumerates guard decisions.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
	NotFound
)

// Decision is the guard's verdict for one navigation. Target is set only for
// Redirect.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Sessions exposes the authentication facts the guard needs.
type Sessions interface {
	Authenticated() bool
	HasHandle() bool
}

// Guard evaluates navigations against the session state.
type Guard struct {
	sessions Sessions
}

// NewGuard builds a guard over the given session source.
func NewGuard(sessions Sessions) *Guard {
	return &Guard{sessions: sessions}
}

// Evaluate decides a navigation to route. Protected routes without a session
// redirect to login. A session without a handle is forced through onboarding,
// and a fully onboarded user is kept out of it.
func (g *Guard) Evaluate(route string) Decision {
	if !Known(route) {
		return Decision{Outcome: NotFound}
	}

	authed := g.sessions.Authenticated()
	if IsProtected(route) && !authed {
		return Decision{Outcome: Redirect, Target: Login}
	}

	if authed {
		needsOnboarding := !g.sessions.HasHandle()
		if needsOnboarding && route != Onboarding {
			return Decision{Outcome: Redirect, Target: Onboarding}
		}
		if !needsOnboarding && route == Onboarding {
			return Decision{Outcome: Redirect, Target: Dashboard}
		}
		if route == Login {
			return Decision{Outcome: Redirect, Target: Dashboard}
		}
	}

	return Decision{Outcome: Allow}
}
