// Package models defines the records produced by the upstream API client and consumed by the profile view.
//
// Summary records ([ProfileSummary], [ArtistSummary], [TrackSummary]) carry the fields needed for listing.
// Detail records ([ArtistDetail], [TrackDetail]) are fetched lazily by id and are never cached or persisted.
//
// Upstream JSON shapes live in the services package, which maps them to these types.
package models
