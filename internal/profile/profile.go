package profile

import (
	"context"

	"github.com/desertthunder/soundcheck/internal/models"
	"github.com/desertthunder/soundcheck/internal/session"
)

// Upstream is the remote API the profile view reads from.
//
// Every call takes the bearer token of the snapshot that started it.
type Upstream interface {
	Profile(ctx context.Context, token string) (*models.ProfileSummary, error)
	TopArtists(ctx context.Context, token string) ([]models.ArtistSummary, error)
	TopTracks(ctx context.Context, token string) ([]models.TrackSummary, error)
	Artist(ctx context.Context, token, id string) (*models.ArtistDetail, error)
	Track(ctx context.Context, token, id string) (*models.TrackDetail, error)
}

// Session is the read side of [session.Manager].
type Session interface {
	Snapshot() session.Snapshot
	IsCurrent(gen uint64) bool
}

var _ Session = (*session.Manager)(nil)

// Status is the lifecycle state of the profile view.
type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "idle"
	}
}
