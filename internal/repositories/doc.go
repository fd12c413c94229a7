// Package repositories implements SQLite persistence for songs, tracklists and users.
//
// Songs and tracklists are stored as whole JSON documents so attributes the service does not interpret
// survive a save. Conditional writes give the stores their existence guarantees:
//   - [SongRepository.Create] fails with [shared.ErrAlreadyExists] when the id is taken
//   - [SongRepository.Update] fails with [shared.ErrNotFound] when no live song has the id
//   - [TrackListRepository.Put] fails with [shared.ErrTrackListTooLarge] past [models.MaxTracks]
//
// Songs are soft deleted via deleted_at and excluded from every query once deleted.
// Listings are ordered by a per-table sequence maintained by [NextSequence].
package repositories
