package session

import "github.com/expensetrack/expensetrack/internal/client"

// RouteKind classifies a view for the guard.
type RouteKind int

const (
	// RoutePublic renders for everyone.
	RoutePublic RouteKind = iota
	// RouteProtected requires a signed-in user.
	RouteProtected
	// RouteAuthOnly is for signed-out users only (login, register).
	RouteAuthOnly
)

// Decision is what the shell should do with a route.
type Decision int

const (
	Render Decision = iota
	ShowPlaceholder
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case ShowPlaceholder:
		return "placeholder"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// HomePath is where signed-in users land.
const HomePath = "/"

// Guard decides how a route is handled in the given session state.
func Guard(snap Snapshot, route RouteKind) Decision {
	switch {
	case snap.State == StateLoading:
		return ShowPlaceholder
	case route == RouteProtected && !snap.Authenticated():
		return RedirectLogin
	case route == RouteAuthOnly && snap.Authenticated():
		return RedirectHome
	default:
		return Render
	}
}

// Location returns the redirect target for d, or "" when d does not redirect.
// The login target carries the session-expired marker when it applies.
func (d Decision) Location(snap Snapshot) string {
	switch d {
	case RedirectLogin:
		return client.LoginPath(snap.Expired)
	case RedirectHome:
		return HomePath
	default:
		return ""
	}
}
