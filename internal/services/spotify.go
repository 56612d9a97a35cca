// Spotify Web API implementation used by the backend proxy.
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/soundcheck/internal/models"
	"github.com/desertthunder/soundcheck/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyScopes are the scopes requested at login: profile, email and top items.
var SpotifyScopes = []string{"user-read-private", "user-read-email", "user-top-read"}

type followers struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist (full object when fetched by id).
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres"`
	Images       []SpotifyImage `json:"images"`
	Popularity   int            `json:"popularity"`
	Followers    followers      `json:"followers"`
	ExternalURLs externalURLs   `json:"external_urls"`
	URI          string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	Popularity   int             `json:"popularity"`
	PreviewURL   *string         `json:"preview_url"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyTopArtists is a page of the user's top artists.
//
// Items is a pointer so a body without the key can be told apart from an empty page.
type SpotifyTopArtists struct {
	Items *[]SpotifyArtist `json:"items"`
	Total int              `json:"total"`
	Limit int              `json:"limit"`
}

// SpotifyTopTracks is a page of the user's top tracks.
type SpotifyTopTracks struct {
	Items *[]SpotifyTrack `json:"items"`
	Total int             `json:"total"`
	Limit int             `json:"limit"`
}

// TopOptions controls the top items query.
type TopOptions struct {
	TimeRange string // short_term, medium_term, long_term
	Limit     int
}

// DefaultTopOptions matches the upstream defaults: medium_term, 20 items.
func DefaultTopOptions() TopOptions {
	return TopOptions{TimeRange: "medium_term", Limit: 20}
}

// Normalize fills defaults and clamps the limit to the upstream page size range.
func (o TopOptions) Normalize() TopOptions {
	switch o.TimeRange {
	case "short_term", "medium_term", "long_term":
	default:
		o.TimeRange = "medium_term"
	}
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 50 {
		o.Limit = 50
	}
	return o
}

// Query encodes the options as time_range & limit.
func (o TopOptions) Query() string {
	o = o.Normalize()
	v := url.Values{}
	v.Set("time_range", o.TimeRange)
	v.Set("limit", fmt.Sprintf("%d", o.Limit))
	return v.Encode()
}

// SpotifyService talks to the Spotify accounts service and Web API on behalf of the backend.
//
// Unlike a per-user client it holds no token: every API call takes the bearer token of the request it serves.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points API calls at another host (tests, mirrors).
func WithBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient sets the client used for API calls and the code exchange.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithRateLimit throttles outgoing API calls to rps requests per second. Zero disables throttling.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithEndpoint overrides the OAuth2 authorize/token endpoints.
func WithEndpoint(authURL, tokenURL string) SpotifyOption {
	return func(s *SpotifyService) {
		s.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:8888/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL the login route redirects to.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", shared.ErrMissingArgument)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get access token: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// doRequest performs an authenticated GET against the Spotify API and decodes the body into result.
func (s *SpotifyService) doRequest(ctx context.Context, token, endpoint string, result any) error {
	if token == "" {
		return fmt.Errorf("%w: access token is required", shared.ErrNotAuthenticated)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewStatusError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrInvalidResponse, err)
	}
	return nil
}

// UserProfile retrieves the profile of the user owning token.
func (s *SpotifyService) UserProfile(ctx context.Context, token string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, token, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TopArtists retrieves the user's top artists.
func (s *SpotifyService) TopArtists(ctx context.Context, token string, opts TopOptions) (*SpotifyTopArtists, error) {
	var page SpotifyTopArtists
	if err := s.doRequest(ctx, token, "/me/top/artists?"+opts.Query(), &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		return nil, fmt.Errorf("%w: top artists", shared.ErrInvalidResponse)
	}
	return &page, nil
}

// TopTracks retrieves the user's top tracks.
func (s *SpotifyService) TopTracks(ctx context.Context, token string, opts TopOptions) (*SpotifyTopTracks, error) {
	var page SpotifyTopTracks
	if err := s.doRequest(ctx, token, "/me/top/tracks?"+opts.Query(), &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		return nil, fmt.Errorf("%w: top tracks", shared.ErrInvalidResponse)
	}
	return &page, nil
}

// Artist retrieves an artist by ID.
func (s *SpotifyService) Artist(ctx context.Context, token, artistID string) (*SpotifyArtist, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	var artist SpotifyArtist
	if err := s.doRequest(ctx, token, "/artists/"+url.PathEscape(artistID), &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, token, trackID string) (*SpotifyTrack, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	var track SpotifyTrack
	if err := s.doRequest(ctx, token, "/tracks/"+url.PathEscape(trackID), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// Mappings to [models] records

func images(in []SpotifyImage) []models.Image {
	out := make([]models.Image, 0, len(in))
	for _, img := range in {
		out = append(out, models.Image{URL: img.URL, Height: img.Height, Width: img.Width})
	}
	return out
}

// Summary maps the profile to [models.ProfileSummary].
func (u SpotifyUser) Summary() models.ProfileSummary {
	return models.ProfileSummary{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Country:     u.Country,
		Product:     u.Product,
		Followers:   u.Followers.Total,
		Images:      images(u.Images),
	}
}

// Summary maps the artist to [models.ArtistSummary].
func (a SpotifyArtist) Summary() models.ArtistSummary {
	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}
	return models.ArtistSummary{ID: a.ID, Name: a.Name, Images: images(a.Images), Genres: genres}
}

// Detail maps the artist to [models.ArtistDetail].
func (a SpotifyArtist) Detail() models.ArtistDetail {
	return models.ArtistDetail{
		ArtistSummary: a.Summary(),
		Popularity:    a.Popularity,
		Followers:     a.Followers.Total,
		SpotifyURL:    a.ExternalURLs.Spotify,
	}
}

// Summary maps the track to [models.TrackSummary].
func (t SpotifyTrack) Summary() models.TrackSummary {
	artists := make([]models.ArtistRef, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, models.ArtistRef{ID: a.ID, Name: a.Name})
	}
	return models.TrackSummary{
		ID:      t.ID,
		Name:    t.Name,
		Artists: artists,
		Album: models.AlbumRef{
			ID:          t.Album.ID,
			Name:        t.Album.Name,
			ReleaseDate: t.Album.ReleaseDate,
			Images:      images(t.Album.Images),
		},
	}
}

// Detail maps the track to [models.TrackDetail].
func (t SpotifyTrack) Detail() models.TrackDetail {
	d := models.TrackDetail{
		TrackSummary: t.Summary(),
		DurationMS:   t.DurationMS,
		Popularity:   t.Popularity,
		Explicit:     t.Explicit,
		SpotifyURL:   t.ExternalURLs.Spotify,
	}
	if t.PreviewURL != nil {
		d.PreviewURL = *t.PreviewURL
	}
	return d
}
