// Package server holds both HTTP halves of soundcheck.
//
// # Backend
//
// [NewProxyRouter] builds the chi router behind `soundcheck serve`:
//
//	GET /login                        302 to the Spotify authorize page
//	GET /callback?code&state          exchange the code, 302 to the client with ?token= (or ?error=)
//	GET /api/profile, /api/user       GET /v1/me
//	GET /api/top-artists              GET /v1/me/top/artists?time_range&limit
//	GET /api/top-tracks               GET /v1/me/top/tracks?time_range&limit
//	GET /api/artist/{id}              GET /v1/artists/{id}
//	GET /api/song/{id}                GET /v1/tracks/{id}
//	GET /health                       {"status":"ok"}
//
// Every /api route requires "Authorization: Bearer <token>"; the token is forwarded unchanged.
// Upstream errors keep their status and message in the {"error": {"status", "message"}} envelope.
//
// # Client callback boundary
//
// The [BasicRouter] serves the [CallbackHandler] on a short-lived local listener while
// `soundcheck login` waits for the browser. The handler processes one request, hands the
// token to the session, asks the guard where to go next and sends the outcome on its result channel.
//
// [Middleware] wraps handlers in reverse order (last added executes first).
package server
