// Package profile aggregates the Spotify data shown once a session is authenticated.
//
// [Aggregator] runs the primary profile fetch and, only when it succeeds, the top
// artists and top tracks fetches in parallel. A failed primary fetch puts the view
// in [Error]; a failed secondary fetch leaves its list empty and is only logged.
//
// [DetailFetcher] loads a single artist or track on demand. When requests overlap
// the last one wins.
//
// Both read the token through a [session.Snapshot] and tag their work with its
// generation. Results that come back after the session changed are discarded.
package profile
