// Package services implements the two HTTP clients of soundcheck.
//
// # Spotify Implementation
//
// [SpotifyService] is used by the backend. It builds the OAuth2 authorization URL, exchanges
// authorization codes through [oauth2.Config.Exchange] and calls the Spotify Web API with the
// bearer token of the request being proxied. Outgoing calls can be throttled with a
// [rate.Limiter] (see [WithRateLimit]).
//
// # Proxy Client
//
// [APIService] is used by the terminal client. It calls the backend's /api routes with the
// session token and maps the JSON bodies to [models] records:
//   - GET /api/profile → [models.ProfileSummary]
//   - GET /api/top-artists → []models.ArtistSummary
//   - GET /api/top-tracks → []models.TrackSummary
//   - GET /api/artist/{id} → [models.ArtistDetail]
//   - GET /api/song/{id} → [models.TrackDetail]
//
// # Error Handling
//
// Non-2xx responses become a [StatusError] carrying the status and the upstream error message
// ({"error": {"message": ...}}). StatusError matches [shared.ErrAPIRequest] and, for 401,
// [shared.ErrUnauthorized] under errors.Is. A list body without "items" is reported as
// [shared.ErrInvalidResponse].
package services
