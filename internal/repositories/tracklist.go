package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/shared"
)

// TrackListRepository implements [models.TrackStore] on SQLite, one row per song.
type TrackListRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTrackListRepository creates a new [TrackListRepository] with the given database connection
func NewTrackListRepository(db *sql.DB, opts ...Option) *TrackListRepository {
	o := newOptions(opts)
	return &TrackListRepository{db: db, now: o.now}
}

// Get retrieves the tracklist of a song, returning [shared.ErrNotFound] if none was saved yet.
func (r *TrackListRepository) Get(ctx context.Context, songID string) (models.TrackList, error) {
	query := `SELECT document FROM tracklists WHERE song_id = ?`

	var document string
	err := r.db.QueryRowContext(ctx, query, songID).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TrackList{}, fmt.Errorf("%w: tracklist %s", shared.ErrNotFound, songID)
	}
	if err != nil {
		return models.TrackList{}, fmt.Errorf("failed to query tracklist: %w", err)
	}

	var tracklist models.TrackList
	if err := json.Unmarshal([]byte(document), &tracklist); err != nil {
		return models.TrackList{}, fmt.Errorf("%w: tracklist %s: %v", shared.ErrInvalidDocument, songID, err)
	}
	if tracklist.Tracks == nil {
		tracklist.Tracks = []models.Track{}
	}

	return tracklist, nil
}

// Put creates or replaces the tracklist of a song.
func (r *TrackListRepository) Put(ctx context.Context, tracklist models.TrackList) error {
	if len(tracklist.Tracks) > models.MaxTracks {
		return fmt.Errorf("%w: %d tracks, at most %d allowed",
			shared.ErrTrackListTooLarge, len(tracklist.Tracks), models.MaxTracks)
	}

	document, err := json.Marshal(tracklist)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidDocument, err)
	}

	now := r.now().UTC()
	query := `
		INSERT INTO tracklists (song_id, document, track_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(song_id) DO UPDATE SET
			document = excluded.document,
			track_count = excluded.track_count,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, tracklist.SongID, string(document), len(tracklist.Tracks), now, now)
	if err != nil {
		return fmt.Errorf("failed to save tracklist: %w", err)
	}

	return nil
}
