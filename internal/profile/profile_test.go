package profile

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/soundcheck/internal/models"
	"github.com/desertthunder/soundcheck/internal/services"
	"github.com/desertthunder/soundcheck/internal/session"
	"github.com/desertthunder/soundcheck/internal/shared"
	tu "github.com/desertthunder/soundcheck/internal/testing"
)

func newSession(t *testing.T, token string) *session.Manager {
	t.Helper()
	m, err := session.NewManager(context.Background(), session.NewMemoryTokenStore(), session.Options{
		LoginURL:  "http://127.0.0.1:8888/login",
		Navigator: func(string) error { return nil },
		Logger:    shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if token != "" {
		if err := m.IngestCallback(context.Background(), token); err != nil {
			t.Fatalf("failed to ingest token: %v", err)
		}
	}
	return m
}

func okProfile(ctx context.Context, token string) (*models.ProfileSummary, error) {
	return &models.ProfileSummary{ID: "u1", DisplayName: "Test User", Followers: 42}, nil
}

func okArtists(ctx context.Context, token string) ([]models.ArtistSummary, error) {
	return []models.ArtistSummary{{ID: "artist1", Name: "Artist One"}, {ID: "artist2", Name: "Artist Two"}}, nil
}

func okTracks(ctx context.Context, token string) ([]models.TrackSummary, error) {
	return []models.TrackSummary{{ID: "track1", Name: "Track One"}}, nil
}

// recorder collects notifications from concurrent goroutines.
type recorder struct {
	mu    sync.Mutex
	views []View
}

func (r *recorder) notify(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.views))
	for _, v := range r.views {
		out = append(out, v.Status)
	}
	return out
}

func TestAggregator(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("Unauthenticated", func(t *testing.T) {
		up := &tu.FakeUpstream{ProfileFn: okProfile}
		agg := NewAggregator(up, newSession(t, ""), logger)

		v := agg.Load(ctx, nil)
		if v.Status != Error || !errors.Is(v.Err, shared.ErrNotAuthenticated) {
			t.Errorf("expected not-authenticated error, got %+v", v)
		}
		if up.Calls("Profile") != 0 {
			t.Error("expected no upstream calls")
		}
	})

	t.Run("All Fetches Succeed", func(t *testing.T) {
		var tokens sync.Map
		up := &tu.FakeUpstream{
			ProfileFn: func(ctx context.Context, token string) (*models.ProfileSummary, error) {
				tokens.Store("profile", token)
				return okProfile(ctx, token)
			},
			TopArtistsFn: okArtists,
			TopTracksFn:  okTracks,
		}
		agg := NewAggregator(up, newSession(t, "abc123"), logger)

		rec := &recorder{}
		v := agg.Load(ctx, rec.notify)

		if v.Status != Ready || v.Profile == nil || v.Profile.Name() != "Test User" {
			t.Fatalf("expected ready view, got %+v", v)
		}
		if len(v.Artists) != 2 || len(v.Tracks) != 1 {
			t.Errorf("expected both lists populated, got %d artists %d tracks", len(v.Artists), len(v.Tracks))
		}
		if v.ArtistsPending || v.TracksPending {
			t.Error("expected no pending lists")
		}
		if tok, _ := tokens.Load("profile"); tok != "abc123" {
			t.Errorf("expected token abc123 on primary fetch, got %v", tok)
		}

		got := rec.statuses()
		if len(got) != 4 || got[0] != Loading || got[1] != Ready {
			t.Errorf("unexpected notifications %v", got)
		}
	})

	t.Run("Primary Failure Skips Secondaries", func(t *testing.T) {
		up := &tu.FakeUpstream{
			ProfileFn: func(ctx context.Context, token string) (*models.ProfileSummary, error) {
				return nil, services.NewStatusError(http.StatusUnauthorized, []byte(tu.UnauthorizedJSON))
			},
			TopArtistsFn: okArtists,
			TopTracksFn:  okTracks,
		}
		agg := NewAggregator(up, newSession(t, "expired"), logger)

		v := agg.Load(ctx, nil)
		if v.Status != Error {
			t.Fatalf("expected error view, got %s", v.Status)
		}
		if !errors.Is(v.Err, shared.ErrPrimaryFetch) || !errors.Is(v.Err, shared.ErrUnauthorized) {
			t.Errorf("expected wrapped primary failure, got %v", v.Err)
		}
		if !strings.HasPrefix(v.Err.Error(), "failed to get Spotify profile info: ") {
			t.Errorf("unexpected message %q", v.Err.Error())
		}
		if up.Calls("TopArtists") != 0 || up.Calls("TopTracks") != 0 {
			t.Error("expected no secondary fetches after primary failure")
		}
		if v.Profile != nil || len(v.Artists) != 0 || len(v.Tracks) != 0 {
			t.Errorf("expected empty data in error view, got %+v", v)
		}
	})

	t.Run("Secondary Failure Degrades Silently", func(t *testing.T) {
		up := &tu.FakeUpstream{
			ProfileFn: okProfile,
			TopArtistsFn: func(ctx context.Context, token string) ([]models.ArtistSummary, error) {
				return nil, services.NewStatusError(http.StatusInternalServerError, nil)
			},
			TopTracksFn: okTracks,
		}
		agg := NewAggregator(up, newSession(t, "abc123"), logger)

		v := agg.Load(ctx, nil)
		if v.Status != Ready {
			t.Fatalf("expected ready view, got %s (%v)", v.Status, v.Err)
		}
		if v.Err != nil {
			t.Errorf("expected no surfaced error, got %v", v.Err)
		}
		if v.Artists == nil || len(v.Artists) != 0 {
			t.Errorf("expected empty artists list, got %v", v.Artists)
		}
		if len(v.Tracks) != 1 || v.Tracks[0].ID != "track1" {
			t.Errorf("expected tracks populated, got %v", v.Tracks)
		}
	})

	t.Run("Both Secondaries Fail", func(t *testing.T) {
		up := &tu.FakeUpstream{ProfileFn: okProfile}
		agg := NewAggregator(up, newSession(t, "abc123"), logger)

		v := agg.Load(ctx, nil)
		if v.Status != Ready || len(v.Artists) != 0 || len(v.Tracks) != 0 {
			t.Errorf("expected ready view with empty lists, got %+v", v)
		}
	})

	t.Run("Secondaries Run Concurrently", func(t *testing.T) {
		started := make(chan struct{}, 2)
		release := make(chan struct{})
		up := &tu.FakeUpstream{
			ProfileFn: okProfile,
			TopArtistsFn: func(ctx context.Context, token string) ([]models.ArtistSummary, error) {
				started <- struct{}{}
				<-release
				return okArtists(ctx, token)
			},
			TopTracksFn: func(ctx context.Context, token string) ([]models.TrackSummary, error) {
				started <- struct{}{}
				<-release
				return okTracks(ctx, token)
			},
		}
		agg := NewAggregator(up, newSession(t, "abc123"), logger)

		done := make(chan View)
		go func() { done <- agg.Load(ctx, nil) }()

		<-started
		<-started
		close(release)

		if v := <-done; len(v.Artists) != 2 || len(v.Tracks) != 1 {
			t.Errorf("unexpected view %+v", v)
		}
	})

	t.Run("Logout Mid Flight Drops Results", func(t *testing.T) {
		sess := newSession(t, "abc123")
		up := &tu.FakeUpstream{
			ProfileFn: func(ctx context.Context, token string) (*models.ProfileSummary, error) {
				sess.Logout(ctx)
				return okProfile(ctx, token)
			},
			TopArtistsFn: okArtists,
			TopTracksFn:  okTracks,
		}
		agg := NewAggregator(up, sess, logger)

		v := agg.Load(ctx, nil)
		if v.Status == Ready || v.Profile != nil {
			t.Errorf("expected stale profile to be dropped, got %+v", v)
		}
		if up.Calls("TopArtists") != 0 {
			t.Error("expected no secondary fetches for a stale load")
		}
	})

	t.Run("Newer Load Wins", func(t *testing.T) {
		release := make(chan struct{})
		first := make(chan struct{})
		var calls int
		var mu sync.Mutex
		up := &tu.FakeUpstream{
			ProfileFn: func(ctx context.Context, token string) (*models.ProfileSummary, error) {
				mu.Lock()
				calls++
				n := calls
				mu.Unlock()
				if n == 1 {
					close(first)
					<-release
					return &models.ProfileSummary{ID: "old"}, nil
				}
				return &models.ProfileSummary{ID: "new"}, nil
			},
			TopArtistsFn: okArtists,
			TopTracksFn:  okTracks,
		}
		agg := NewAggregator(up, newSession(t, "abc123"), logger)

		done := make(chan struct{})
		go func() {
			agg.Load(ctx, nil)
			close(done)
		}()
		<-first

		agg.Load(ctx, nil)
		close(release)
		<-done

		v := agg.View()
		if v.Profile == nil || v.Profile.ID != "new" {
			t.Errorf("expected newest profile, got %+v", v.Profile)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		up := &tu.FakeUpstream{ProfileFn: okProfile, TopArtistsFn: okArtists, TopTracksFn: okTracks}
		agg := NewAggregator(up, newSession(t, "abc123"), logger)

		agg.Load(ctx, nil)
		agg.Reset()

		v := agg.View()
		if v.Status != Idle || v.Profile != nil || v.Artists != nil {
			t.Errorf("expected idle view, got %+v", v)
		}
	})

	t.Run("View Is A Copy", func(t *testing.T) {
		up := &tu.FakeUpstream{ProfileFn: okProfile, TopArtistsFn: okArtists, TopTracksFn: okTracks}
		agg := NewAggregator(up, newSession(t, "abc123"), logger)
		agg.Load(ctx, nil)

		v := agg.View()
		v.Artists[0].Name = "changed"
		v.Profile.DisplayName = "changed"

		again := agg.View()
		if again.Artists[0].Name != "Artist One" || again.Profile.DisplayName != "Test User" {
			t.Error("expected view to be isolated from caller mutation")
		}
	})
}

func TestDetailFetcher(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	okArtist := func(ctx context.Context, token, id string) (*models.ArtistDetail, error) {
		return &models.ArtistDetail{ArtistSummary: models.ArtistSummary{ID: id, Name: "Artist " + id}, Popularity: 50}, nil
	}

	t.Run("Open Artist Then Close", func(t *testing.T) {
		up := &tu.FakeUpstream{ArtistFn: okArtist}
		f := NewDetailFetcher(up, newSession(t, "abc123"), logger)

		d, err := f.Open(ctx, models.KindArtist, "42")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if d.Artist == nil || d.Artist.ID != "42" {
			t.Errorf("unexpected detail %+v", d)
		}

		s := f.State()
		if !s.Open || s.Loading || s.Kind != models.KindArtist || s.ID != "42" || s.Artist == nil {
			t.Errorf("unexpected state %+v", s)
		}
		if s.Track != nil || s.Err != nil {
			t.Errorf("expected only the artist to be set, got %+v", s)
		}

		f.Close()
		s = f.State()
		if s.Open || s.Artist != nil || s.Err != nil || s.ID != "" {
			t.Errorf("expected cleared state, got %+v", s)
		}
	})

	t.Run("Open Track", func(t *testing.T) {
		up := &tu.FakeUpstream{
			TrackFn: func(ctx context.Context, token, id string) (*models.TrackDetail, error) {
				return &models.TrackDetail{TrackSummary: models.TrackSummary{ID: id}, DurationMS: 1000}, nil
			},
		}
		f := NewDetailFetcher(up, newSession(t, "abc123"), logger)

		if _, err := f.Open(ctx, models.KindTrack, "track1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s := f.State(); s.Track == nil || s.Track.ID != "track1" || s.Artist != nil {
			t.Errorf("unexpected state %+v", s)
		}
	})

	t.Run("Last Request Wins", func(t *testing.T) {
		releaseX := make(chan struct{})
		startedX := make(chan struct{})
		up := &tu.FakeUpstream{
			ArtistFn: func(ctx context.Context, token, id string) (*models.ArtistDetail, error) {
				if id == "X" {
					close(startedX)
					<-releaseX
				}
				return okArtist(ctx, token, id)
			},
		}
		f := NewDetailFetcher(up, newSession(t, "abc123"), logger)

		done := make(chan Detail)
		go func() {
			d, _ := f.Open(ctx, models.KindArtist, "X")
			done <- d
		}()
		<-startedX

		if _, err := f.Open(ctx, models.KindArtist, "Y"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(releaseX)

		if d := <-done; d.Artist == nil || d.Artist.ID != "X" {
			t.Errorf("expected caller of X to still receive X, got %+v", d)
		}

		s := f.State()
		if s.ID != "Y" || s.Artist == nil || s.Artist.ID != "Y" {
			t.Errorf("expected Y to stay displayed, got %+v", s)
		}
	})

	t.Run("Close Invalidates In Flight", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		up := &tu.FakeUpstream{
			ArtistFn: func(ctx context.Context, token, id string) (*models.ArtistDetail, error) {
				close(started)
				<-release
				return okArtist(ctx, token, id)
			},
		}
		f := NewDetailFetcher(up, newSession(t, "abc123"), logger)

		done := make(chan struct{})
		go func() {
			f.Open(ctx, models.KindArtist, "42")
			close(done)
		}()
		<-started
		f.Close()
		close(release)
		<-done

		if s := f.State(); s.Open || s.Artist != nil {
			t.Errorf("expected closed panel, got %+v", s)
		}
	})

	t.Run("Failure Is Recorded And Retry Refetches", func(t *testing.T) {
		fail := true
		up := &tu.FakeUpstream{
			ArtistFn: func(ctx context.Context, token, id string) (*models.ArtistDetail, error) {
				if fail {
					return nil, services.NewStatusError(http.StatusNotFound, nil)
				}
				return okArtist(ctx, token, id)
			},
		}
		f := NewDetailFetcher(up, newSession(t, "abc123"), logger)

		_, err := f.Open(ctx, models.KindArtist, "42")
		if !errors.Is(err, shared.ErrDetailFetch) {
			t.Errorf("expected ErrDetailFetch, got %v", err)
		}
		if s := f.State(); !s.Open || s.Loading || !errors.Is(s.Err, shared.ErrDetailFetch) {
			t.Errorf("expected error state, got %+v", s)
		}

		fail = false
		if _, err := f.Open(ctx, models.KindArtist, "42"); err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if s := f.State(); s.Err != nil || s.Artist == nil {
			t.Errorf("expected cleared error after retry, got %+v", s)
		}
		if up.Calls("Artist") != 2 {
			t.Errorf("expected 2 upstream calls, got %d", up.Calls("Artist"))
		}
	})

	t.Run("Logout Mid Flight Drops Result", func(t *testing.T) {
		sess := newSession(t, "abc123")
		up := &tu.FakeUpstream{
			ArtistFn: func(ctx context.Context, token, id string) (*models.ArtistDetail, error) {
				sess.Logout(ctx)
				return okArtist(ctx, token, id)
			},
		}
		f := NewDetailFetcher(up, sess, logger)

		f.Open(ctx, models.KindArtist, "42")
		s := f.State()
		if s.Artist != nil {
			t.Errorf("expected stale result to be dropped, got %+v", s)
		}
		if s.Loading {
			t.Error("expected loading to clear after the dropped result")
		}
		if !errors.Is(s.Err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", s.Err)
		}
	})

	t.Run("Invalid Input", func(t *testing.T) {
		up := &tu.FakeUpstream{ArtistFn: okArtist}
		f := NewDetailFetcher(up, newSession(t, "abc123"), logger)

		if _, err := f.Open(ctx, models.EntityKind("album"), "1"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := f.Open(ctx, models.KindArtist, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if up.Calls("Artist") != 0 || f.State().Open {
			t.Error("expected invalid input to leave the fetcher untouched")
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		up := &tu.FakeUpstream{ArtistFn: okArtist}
		f := NewDetailFetcher(up, newSession(t, ""), logger)

		if _, err := f.Open(ctx, models.KindArtist, "42"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if up.Calls("Artist") != 0 {
			t.Error("expected no upstream calls")
		}
	})
}
