// Package session owns the client's authentication lifecycle.
//
// A [Manager] holds the single bearer token, persists it through a [TokenStore]
// and exposes consistent [Snapshot] values to the fetchers. The token is never logged.
//
// Transitions:
//
//	Unauthenticated --IngestCallback(non-empty)--> Authenticated
//	Authenticated   --IngestCallback(non-empty)--> Authenticated (token replaced)
//	any             --Logout-->                    Unauthenticated
//
// Each transition increments the generation.
package session
