// Package models defines domain entities and the collaborator interfaces (ports) for the chordpaper song service.
//
// The package contains two categories of types:
//
// 1. Documents: JSON-canonical entities persisted by the document store
//   - [Song] : A user-authored project with ordered elements and free-form metadata
//   - [SongSummary] : The lightweight projection of a Song used for ownership listings
//   - [TrackList] : The ordered set of [Track] values attached 1:1 to a Song
//   - [User] : An account keyed by the identity provider's subject identifier
//
// 2. Messages and identities exchanged with external collaborators
//   - [Identity] : The verified result of an identity token
//   - [SplitJob] : The queue message requesting a stem-separation job for one track
//
// Documents keep every attribute they were decoded with: keys the service does not interpret are carried in
// Extra/Contents maps and written back unchanged, so a save never drops data the client sent.
//
// The [SongStore], [TrackStore], [UserStore], [IdentityVerifier] and [JobPublisher] interfaces are implemented by
// the repositories and services packages and consumed by the usecases package.
package models
