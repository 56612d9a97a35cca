package profile

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundcheck/internal/models"
	"github.com/desertthunder/soundcheck/internal/shared"
)

// View is a copy of the aggregated profile state.
//
// Profile is set only in [Ready]. Err is set only in [Error]. The top lists stay empty when their fetch fails.
type View struct {
	Status         Status
	Generation     uint64
	Profile        *models.ProfileSummary
	Artists        []models.ArtistSummary
	Tracks         []models.TrackSummary
	ArtistsPending bool
	TracksPending  bool
	Err            error
}

func (v View) clone() View {
	if v.Profile != nil {
		p := *v.Profile
		v.Profile = &p
	}
	v.Artists = slices.Clone(v.Artists)
	v.Tracks = slices.Clone(v.Tracks)
	return v
}

// Aggregator builds the profile view from one primary and two secondary upstream calls.
type Aggregator struct {
	upstream Upstream
	session  Session
	logger   *log.Logger

	mu   sync.Mutex
	view View
	seq  uint64

	// serialises apply+notify so listeners see updates in apply order
	notifyMu sync.Mutex
}

// NewAggregator creates an [Aggregator] in the [Idle] state.
func NewAggregator(upstream Upstream, sess Session, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Aggregator{
		upstream: upstream,
		session:  sess,
		logger:   shared.WithLogger(logger, "component", "profile"),
	}
}

// Load fetches the profile, then the top artists and top tracks concurrently, and returns the resulting view.
//
// notify (may be nil) receives a copy of the view after every applied change. It must not call Load.
// Results that arrive after a newer Load, a [Aggregator.Reset] or a session transition are dropped.
func (a *Aggregator) Load(ctx context.Context, notify func(View)) View {
	if notify == nil {
		notify = func(View) {}
	}

	snap := a.session.Snapshot()

	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	gen := snap.Generation

	if !snap.Authenticated() {
		a.apply(seq, gen, notify, func(v *View) {
			*v = View{Status: Error, Generation: gen, Err: shared.ErrNotAuthenticated}
		})
		return a.View()
	}

	a.apply(seq, gen, notify, func(v *View) {
		*v = View{Status: Loading, Generation: gen}
	})

	profile, err := a.upstream.Profile(ctx, snap.Token)
	if err != nil {
		a.logger.Error("primary fetch failed", "error", err)
		a.apply(seq, gen, notify, func(v *View) {
			*v = View{Status: Error, Generation: gen, Err: fmt.Errorf("%w: %w", shared.ErrPrimaryFetch, err)}
		})
		return a.View()
	}

	if !a.apply(seq, gen, notify, func(v *View) {
		*v = View{
			Status:         Ready,
			Generation:     gen,
			Profile:        profile,
			Artists:        []models.ArtistSummary{},
			Tracks:         []models.TrackSummary{},
			ArtistsPending: true,
			TracksPending:  true,
		}
	}) {
		a.logger.Debug("dropping stale profile result", "generation", gen)
		return a.View()
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		artists, err := a.upstream.TopArtists(ctx, snap.Token)
		if err != nil {
			a.logger.Warn("secondary fetch degraded", "list", "top_artists", "error", fmt.Errorf("%w: %w", shared.ErrSecondaryFetch, err))
		}
		a.apply(seq, gen, notify, func(v *View) {
			v.ArtistsPending = false
			if err == nil && artists != nil {
				v.Artists = artists
			}
		})
	}()

	go func() {
		defer wg.Done()
		tracks, err := a.upstream.TopTracks(ctx, snap.Token)
		if err != nil {
			a.logger.Warn("secondary fetch degraded", "list", "top_tracks", "error", fmt.Errorf("%w: %w", shared.ErrSecondaryFetch, err))
		}
		a.apply(seq, gen, notify, func(v *View) {
			v.TracksPending = false
			if err == nil && tracks != nil {
				v.Tracks = tracks
			}
		})
	}()

	wg.Wait()
	return a.View()
}

// apply runs fn on the view when seq is still the latest load and gen the live session generation.
func (a *Aggregator) apply(seq, gen uint64, notify func(View), fn func(*View)) bool {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	if seq != a.seq || !a.session.IsCurrent(gen) {
		a.mu.Unlock()
		return false
	}
	fn(&a.view)
	v := a.view.clone()
	a.mu.Unlock()

	notify(v)
	return true
}

// View returns a copy of the current state.
func (a *Aggregator) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view.clone()
}

// Reset returns the view to [Idle] and drops any in-flight results.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	a.view = View{}
}
