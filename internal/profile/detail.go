package profile

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundcheck/internal/models"
	"github.com/desertthunder/soundcheck/internal/shared"
)

// Detail is the result of one detail request. Exactly one of Artist and Track is set.
type Detail struct {
	Kind   models.EntityKind
	ID     string
	Artist *models.ArtistDetail
	Track  *models.TrackDetail
}

// DetailState is a copy of the open detail panel.
type DetailState struct {
	Open    bool
	Loading bool
	Kind    models.EntityKind
	ID      string
	Artist  *models.ArtistDetail
	Track   *models.TrackDetail
	Err     error
}

// DetailFetcher loads the full artist or track record on demand.
//
// Only the most recent request may change the state; nothing is cached.
type DetailFetcher struct {
	upstream Upstream
	session  Session
	logger   *log.Logger

	mu    sync.Mutex
	state DetailState
	seq   uint64
}

// NewDetailFetcher creates a closed [DetailFetcher].
func NewDetailFetcher(upstream Upstream, sess Session, logger *log.Logger) *DetailFetcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &DetailFetcher{
		upstream: upstream,
		session:  sess,
		logger:   shared.WithLogger(logger, "component", "detail"),
	}
}

// Open requests the record for (kind, id), replacing any open detail.
//
// The fetched record or error is returned to the caller whether or not it was applied to the state.
func (f *DetailFetcher) Open(ctx context.Context, kind models.EntityKind, id string) (Detail, error) {
	if kind != models.KindArtist && kind != models.KindTrack {
		return Detail{}, fmt.Errorf("%w: unknown entity kind %q", shared.ErrInvalidArgument, kind)
	}
	if id == "" {
		return Detail{}, fmt.Errorf("%w: %s id", shared.ErrMissingArgument, kind)
	}

	snap := f.session.Snapshot()
	if !snap.Authenticated() {
		return Detail{}, fmt.Errorf("%w: %w", shared.ErrDetailFetch, shared.ErrNotAuthenticated)
	}

	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.state = DetailState{Open: true, Loading: true, Kind: kind, ID: id}
	f.mu.Unlock()

	detail := Detail{Kind: kind, ID: id}
	var err error
	switch kind {
	case models.KindArtist:
		detail.Artist, err = f.upstream.Artist(ctx, snap.Token, id)
	case models.KindTrack:
		detail.Track, err = f.upstream.Track(ctx, snap.Token, id)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", shared.ErrDetailFetch, err)
		f.logger.Warn("detail fetch failed", "kind", kind, "id", id, "error", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if seq != f.seq {
		f.logger.Debug("dropping superseded detail result", "kind", kind, "id", id)
		return detail, err
	}
	if !f.session.IsCurrent(snap.Generation) {
		f.logger.Debug("dropping stale detail result", "kind", kind, "id", id)
		f.state.Loading = false
		f.state.Err = fmt.Errorf("%w: %w", shared.ErrDetailFetch, shared.ErrNotAuthenticated)
		return detail, err
	}

	f.state.Loading = false
	if err != nil {
		f.state.Err = err
	} else {
		f.state.Artist = detail.Artist
		f.state.Track = detail.Track
	}
	return detail, err
}

// Close clears the panel and invalidates in-flight requests.
func (f *DetailFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.state = DetailState{}
}

// State returns a copy of the panel state.
func (f *DetailFetcher) State() DetailState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	if s.Artist != nil {
		a := *s.Artist
		s.Artist = &a
	}
	if s.Track != nil {
		t := *s.Track
		s.Track = &t
	}
	return s
}
