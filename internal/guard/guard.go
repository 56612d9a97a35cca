// package guard decides which destinations a session may enter
//
// Protected destinations require an authenticated session; everything else is public.
// The guard is re-evaluated on every navigation: each CLI command dispatch and every view switch in the TUI.
package guard

import (
	"strings"

	"github.com/desertthunder/soundcheck/internal/session"
)

// Destination is a navigable place in the client.
type Destination int

const (
	Landing Destination = iota
	Callback
	Profile
	Detail
)

var paths = map[Destination]string{
	Landing:  "/",
	Callback: "/callback",
	Profile:  "/profile",
	Detail:   "/detail",
}

// Path returns the route of the destination.
func (d Destination) Path() string {
	if p, ok := paths[d]; ok {
		return p
	}
	return "/"
}

func (d Destination) String() string {
	switch d {
	case Callback:
		return "callback"
	case Profile:
		return "profile"
	case Detail:
		return "detail"
	default:
		return "landing"
	}
}

// Protected reports whether the destination requires authentication.
func (d Destination) Protected() bool {
	return d == Profile || d == Detail
}

// ParseDestination maps a route to its destination. Unknown routes map to [Landing].
func ParseDestination(path string) Destination {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	for d, p := range paths {
		if p == path {
			return d
		}
	}
	return Landing
}

// Decision is the outcome of a guard check. When Allow is false, Redirect names where to go instead.
type Decision struct {
	Allow    bool
	Redirect Destination
}

// Guard enforces authentication on protected destinations.
type Guard struct{}

// New creates a [Guard].
func New() *Guard {
	return &Guard{}
}

// Resolve decides whether dest may be entered in state.
func (g *Guard) Resolve(dest Destination, state session.State) Decision {
	if dest.Protected() && state != session.Authenticated {
		return Decision{Allow: false, Redirect: Landing}
	}
	return Decision{Allow: true, Redirect: dest}
}

// AfterCallback picks the onward destination once the callback boundary has run.
func (g *Guard) AfterCallback(ok bool) Destination {
	if ok {
		return Profile
	}
	return Landing
}
