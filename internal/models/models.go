// package models defines the data model for the chordpaper song service
package models

import (
	"context"
)

// SongStore defines document-store access for [Song] documents.
//
// Create must fail with [shared.ErrAlreadyExists] when the id is taken and Update must fail with
// [shared.ErrNotFound] when no live song has the id.
type SongStore interface {
	Get(ctx context.Context, id string) (Song, error)                        // Get retrieves a song by its ID
	Create(ctx context.Context, song Song) error                             // Create inserts a song, failing if the ID exists
	Update(ctx context.Context, song Song) error                             // Update replaces a song, failing if the ID is absent
	Delete(ctx context.Context, id string) error                             // Delete removes a song by its ID
	QueryByOwner(ctx context.Context, ownerID string) ([]SongSummary, error) // QueryByOwner lists summaries of an owner's songs
}

// TrackStore defines document-store access for [TrackList] documents.
type TrackStore interface {
	Get(ctx context.Context, songID string) (TrackList, error) // Get retrieves the tracklist for a song
	Put(ctx context.Context, tracklist TrackList) error        // Put creates or replaces the tracklist for a song
}

// UserStore defines document-store access for [User] accounts.
type UserStore interface {
	Upsert(ctx context.Context, user User) (User, error) // Upsert creates or refreshes a user and returns the stored record
}

// IdentityVerifier verifies opaque identity tokens issued by the identity provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// JobPublisher enqueues background audio jobs.
type JobPublisher interface {
	Publish(ctx context.Context, job SplitJob) error
}
