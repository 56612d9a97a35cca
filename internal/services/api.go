// API service for the soundcheck backend proxy
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
)

// APIService is the client side of the backend proxy (/api/*).
//
// Every call carries the session's bearer token; the service itself is stateless.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	top        TopOptions
}

// NewAPIService creates a new API service instance for the backend proxy.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8888"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		top:        DefaultTopOptions(),
	}
}

// WithTopOptions sets the time range and page size used for the top items lists.
func (a *APIService) WithTopOptions(opts TopOptions) *APIService {
	a.top = opts.Normalize()
	return a
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to the specified path with the bearer token and returns the raw response.
func (a *APIService) Get(ctx context.Context, token, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// getJSON performs a GET and decodes a 2xx body into result; other statuses become a [StatusError].
func (a *APIService) getJSON(ctx context.Context, token, path string, result any) error {
	resp, err := a.Get(ctx, token, path)
	if err != nil {
		return err
	}

	if !resp.OK() {
		return NewStatusError(resp.StatusCode, resp.Body)
	}

	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrInvalidResponse, err)
	}
	return nil
}

// Profile fetches the primary profile resource.
func (a *APIService) Profile(ctx context.Context, token string) (*models.ProfileSummary, error) {
	var user SpotifyUser
	if err := a.getJSON(ctx, token, "/api/profile", &user); err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

// TopArtists fetches the user's top artists list.
func (a *APIService) TopArtists(ctx context.Context, token string) ([]models.ArtistSummary, error) {
	var page SpotifyTopArtists
	if err := a.getJSON(ctx, token, "/api/top-artists?"+a.top.Query(), &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		return nil, fmt.Errorf("%w: top artists", shared.ErrInvalidResponse)
	}

	artists := make([]models.ArtistSummary, 0, len(*page.Items))
	for _, item := range *page.Items {
		artists = append(artists, item.Summary())
	}
	return artists, nil
}

// TopTracks fetches the user's top tracks list.
func (a *APIService) TopTracks(ctx context.Context, token string) ([]models.TrackSummary, error) {
	var page SpotifyTopTracks
	if err := a.getJSON(ctx, token, "/api/top-tracks?"+a.top.Query(), &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		return nil, fmt.Errorf("%w: top tracks", shared.ErrInvalidResponse)
	}

	tracks := make([]models.TrackSummary, 0, len(*page.Items))
	for _, item := range *page.Items {
		tracks = append(tracks, item.Summary())
	}
	return tracks, nil
}

// Artist fetches the full artist record.
func (a *APIService) Artist(ctx context.Context, token, id string) (*models.ArtistDetail, error) {
	var artist SpotifyArtist
	if err := a.getJSON(ctx, token, "/api/artist/"+url.PathEscape(id), &artist); err != nil {
		return nil, err
	}
	detail := artist.Detail()
	return &detail, nil
}

// Track fetches the full track record.
func (a *APIService) Track(ctx context.Context, token, id string) (*models.TrackDetail, error) {
	var track SpotifyTrack
	if err := a.getJSON(ctx, token, "/api/song/"+url.PathEscape(id), &track); err != nil {
		return nil, err
	}
	detail := track.Detail()
	return &detail, nil
}
