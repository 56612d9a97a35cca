package guard

import (
	"testing"

	"github.com/desertthunder/soundcheck/internal/session"
)

func TestGuard(t *testing.T) {
	g := New()

	t.Run("Resolve", func(t *testing.T) {
		tests := []struct {
			name     string
			dest     Destination
			state    session.State
			allow    bool
			redirect Destination
		}{
			{"profile unauthenticated", Profile, session.Unauthenticated, false, Landing},
			{"profile authenticated", Profile, session.Authenticated, true, Profile},
			{"detail unauthenticated", Detail, session.Unauthenticated, false, Landing},
			{"detail authenticated", Detail, session.Authenticated, true, Detail},
			{"landing unauthenticated", Landing, session.Unauthenticated, true, Landing},
			{"landing authenticated", Landing, session.Authenticated, true, Landing},
			{"callback unauthenticated", Callback, session.Unauthenticated, true, Callback},
			{"callback authenticated", Callback, session.Authenticated, true, Callback},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				d := g.Resolve(tt.dest, tt.state)
				if d.Allow != tt.allow {
					t.Errorf("expected allow=%v, got %v", tt.allow, d.Allow)
				}
				if d.Redirect != tt.redirect {
					t.Errorf("expected redirect %s, got %s", tt.redirect, d.Redirect)
				}
			})
		}
	})

	t.Run("AfterCallback", func(t *testing.T) {
		if g.AfterCallback(true) != Profile {
			t.Error("expected profile after successful callback")
		}
		if g.AfterCallback(false) != Landing {
			t.Error("expected landing after failed callback")
		}
	})

	t.Run("ParseDestination", func(t *testing.T) {
		tests := map[string]Destination{
			"/":                  Landing,
			"":                   Landing,
			"/profile":           Profile,
			"/profile/":          Profile,
			"/callback?token=ab": Callback,
			"/detail":            Detail,
			"/unknown":           Landing,
		}

		for path, want := range tests {
			if got := ParseDestination(path); got != want {
				t.Errorf("ParseDestination(%q) = %s, want %s", path, got, want)
			}
		}
	})

	t.Run("Path Round Trip", func(t *testing.T) {
		for _, d := range []Destination{Landing, Callback, Profile, Detail} {
			if ParseDestination(d.Path()) != d {
				t.Errorf("expected %s to round trip through %s", d, d.Path())
			}
		}
	})
}
