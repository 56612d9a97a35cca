// package models defines the records shown by the profile view
package models

import (
	"fmt"
	"strings"
	"time"
)

// EntityKind identifies which detail record a request is for.
type EntityKind string

const (
	KindArtist EntityKind = "artist"
	KindTrack  EntityKind = "track"
)

// ParseEntityKind accepts "artist" or "track" (also "song", the proxy's name for tracks).
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "artist":
		return KindArtist, nil
	case "track", "song":
		return KindTrack, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
}

// Image is an image reference returned by the upstream API.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// ProfileSummary is the primary record of the profile view.
type ProfileSummary struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Country     string  `json:"country"`
	Product     string  `json:"product"` // subscription tier: premium, free, ...
	Followers   int     `json:"followers"`
	Images      []Image `json:"images"`
}

// Name returns the display name, falling back to the user id.
func (p ProfileSummary) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// ArtistRef is a minimal artist reference embedded in track records.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AlbumRef is a minimal album reference embedded in track records.
type AlbumRef struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date,omitempty"`
	Images      []Image `json:"images"`
}

// ArtistSummary is an entry of the top artists list.
type ArtistSummary struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Images []Image  `json:"images"`
	Genres []string `json:"genres"`
}

// TrackSummary is an entry of the top tracks list.
type TrackSummary struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Artists []ArtistRef `json:"artists"`
	Album   AlbumRef    `json:"album"`
}

// ArtistNames joins the names of all credited artists.
func (t TrackSummary) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// ArtistDetail is the full artist record fetched on demand.
type ArtistDetail struct {
	ArtistSummary
	Popularity int    `json:"popularity"`
	Followers  int    `json:"followers"`
	SpotifyURL string `json:"spotify_url"`
}

// TrackDetail is the full track record fetched on demand.
type TrackDetail struct {
	TrackSummary
	DurationMS int    `json:"duration_ms"`
	Popularity int    `json:"popularity"`
	Explicit   bool   `json:"explicit"`
	PreviewURL string `json:"preview_url,omitempty"`
	SpotifyURL string `json:"spotify_url"`
}

// Duration returns the track length.
func (t TrackDetail) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// FormatDuration renders the track length as m:ss.
func (t TrackDetail) FormatDuration() string {
	total := t.DurationMS / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FirstImage returns the first (largest, by upstream convention) image URL or "".
func FirstImage(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
