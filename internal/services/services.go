// package services implements the HTTP clients for Spotify (backend side) and the soundcheck proxy (client side)
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// OAuthService is implemented by providers that run the authorization code flow on the backend.
type OAuthService interface {
	// Name returns the name of the service (e.g., "Spotify")
	Name() string

	// AuthURL returns the provider authorization URL for the given CSRF state.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

var _ OAuthService = (*SpotifyService)(nil)
