// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/desertthunder/soundcheck/internal/models"
	"github.com/desertthunder/soundcheck/internal/shared"
)

// Spotify response fixtures.
const (
	ProfileJSON = `{
		"id": "mock_user_id",
		"display_name": "Test User",
		"email": "test@example.com",
		"country": "US",
		"product": "premium",
		"followers": {"total": 42},
		"images": [{"url": "https://example.com/image.jpg", "height": 300, "width": 300}]
	}`

	TopArtistsJSON = `{
		"items": [
			{"id": "artist1", "name": "Artist One", "images": [{"url": "https://example.com/artist1.jpg"}], "genres": ["rock", "indie"]},
			{"id": "artist2", "name": "Artist Two", "images": [{"url": "https://example.com/artist2.jpg"}], "genres": ["pop", "electronic"]}
		],
		"total": 2,
		"limit": 20
	}`

	TopTracksJSON = `{
		"items": [
			{"id": "track1", "name": "Track One", "artists": [{"id": "artist1", "name": "Artist One"}], "album": {"id": "album1", "name": "Album One", "images": [{"url": "https://example.com/album1.jpg"}]}},
			{"id": "track2", "name": "Track Two", "artists": [{"id": "artist2", "name": "Artist Two"}], "album": {"id": "album2", "name": "Album Two", "images": [{"url": "https://example.com/album2.jpg"}]}}
		],
		"total": 2,
		"limit": 20
	}`

	ArtistJSON = `{
		"id": "42",
		"name": "Artist Forty Two",
		"genres": ["jazz"],
		"popularity": 77,
		"followers": {"total": 1000},
		"images": [{"url": "https://example.com/42.jpg"}],
		"external_urls": {"spotify": "https://open.spotify.com/artist/42"}
	}`

	TrackJSON = `{
		"id": "track1",
		"name": "Track One",
		"artists": [{"id": "artist1", "name": "Artist One"}],
		"album": {"id": "album1", "name": "Album One", "release_date": "2020-01-01", "images": [{"url": "https://example.com/album1.jpg"}]},
		"duration_ms": 215000,
		"popularity": 65,
		"explicit": true,
		"preview_url": "https://p.scdn.co/mp3-preview/track1",
		"external_urls": {"spotify": "https://open.spotify.com/track/track1"}
	}`

	UnauthorizedJSON = `{"error": {"status": 401, "message": "Invalid access token"}}`
)

// FakeUpstream is a test double for the profile view's upstream client.
//
// Each method delegates to the matching func field and counts its calls. A nil func returns [shared.ErrNotImplemented].
type FakeUpstream struct {
	ProfileFn    func(ctx context.Context, token string) (*models.ProfileSummary, error)
	TopArtistsFn func(ctx context.Context, token string) ([]models.ArtistSummary, error)
	TopTracksFn  func(ctx context.Context, token string) ([]models.TrackSummary, error)
	ArtistFn     func(ctx context.Context, token, id string) (*models.ArtistDetail, error)
	TrackFn      func(ctx context.Context, token, id string) (*models.TrackDetail, error)

	mu    sync.Mutex
	calls map[string]int
}

func (f *FakeUpstream) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

// Calls returns how many times the named method ran.
func (f *FakeUpstream) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *FakeUpstream) Profile(ctx context.Context, token string) (*models.ProfileSummary, error) {
	f.record("Profile")
	if f.ProfileFn == nil {
		return nil, shared.ErrNotImplemented
	}
	return f.ProfileFn(ctx, token)
}

func (f *FakeUpstream) TopArtists(ctx context.Context, token string) ([]models.ArtistSummary, error) {
	f.record("TopArtists")
	if f.TopArtistsFn == nil {
		return nil, shared.ErrNotImplemented
	}
	return f.TopArtistsFn(ctx, token)
}

func (f *FakeUpstream) TopTracks(ctx context.Context, token string) ([]models.TrackSummary, error) {
	f.record("TopTracks")
	if f.TopTracksFn == nil {
		return nil, shared.ErrNotImplemented
	}
	return f.TopTracksFn(ctx, token)
}

func (f *FakeUpstream) Artist(ctx context.Context, token, id string) (*models.ArtistDetail, error) {
	f.record("Artist")
	if f.ArtistFn == nil {
		return nil, shared.ErrNotImplemented
	}
	return f.ArtistFn(ctx, token, id)
}

func (f *FakeUpstream) Track(ctx context.Context, token, id string) (*models.TrackDetail, error) {
	f.record("Track")
	if f.TrackFn == nil {
		return nil, shared.ErrNotImplemented
	}
	return f.TrackFn(ctx, token, id)
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails once maxWrites writes have gone through to target
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// WriteJSON writes body with the given status as application/json.
func WriteJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		t.Errorf("failed to write response: %v", err)
	}
}
