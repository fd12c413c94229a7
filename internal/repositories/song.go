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

// SongRepository implements [models.SongStore] on SQLite.
type SongRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSongRepository creates a new [SongRepository] with the given database connection
func NewSongRepository(db *sql.DB, opts ...Option) *SongRepository {
	o := newOptions(opts)
	return &SongRepository{db: db, now: o.now}
}

// Get retrieves a song by ID, excluding soft-deleted songs
func (r *SongRepository) Get(ctx context.Context, id string) (models.Song, error) {
	query := `SELECT document FROM songs WHERE id = ? AND deleted_at IS NULL`

	var document string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Song{}, fmt.Errorf("%w: song %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return models.Song{}, fmt.Errorf("failed to query song: %w", err)
	}

	var song models.Song
	if err := json.Unmarshal([]byte(document), &song); err != nil {
		return models.Song{}, fmt.Errorf("%w: song %s: %v", shared.ErrInvalidDocument, id, err)
	}

	return song, nil
}

// Create inserts a new song, failing with [shared.ErrAlreadyExists] if the id is already in use.
func (r *SongRepository) Create(ctx context.Context, song models.Song) error {
	document, metadata, err := encodeSong(song)
	if err != nil {
		return err
	}

	sequence, err := NextSequence(ctx, r.db, "songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := r.now().UTC()
	query := `
		INSERT INTO songs (id, sequence, owner, last_saved_at, metadata, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		song.ID, sequence, song.Owner, nullTime(song.LastSavedAt), metadata, document, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: song %s", shared.ErrAlreadyExists, song.ID)
	}

	return nil
}

// Update replaces an existing song document, failing with [shared.ErrNotFound] if no live song has the id.
func (r *SongRepository) Update(ctx context.Context, song models.Song) error {
	document, metadata, err := encodeSong(song)
	if err != nil {
		return err
	}

	query := `
		UPDATE songs
		SET owner = ?, last_saved_at = ?, metadata = ?, document = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		song.Owner, nullTime(song.LastSavedAt), metadata, document, r.now().UTC(), song.ID)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: song %s", shared.ErrNotFound, song.ID)
	}

	return nil
}

// Delete soft-deletes a song by ID. Deleting a missing song is not an error.
func (r *SongRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE songs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, r.now().UTC(), id); err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	return nil
}

// QueryByOwner lists the summaries of an owner's live songs in creation order.
func (r *SongRepository) QueryByOwner(ctx context.Context, ownerID string) ([]models.SongSummary, error) {
	query := `
		SELECT id, owner, last_saved_at, metadata
		FROM songs
		WHERE owner = ? AND deleted_at IS NULL
		ORDER BY sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	summaries := []models.SongSummary{}
	for rows.Next() {
		var (
			summary     models.SongSummary
			lastSavedAt sql.NullTime
			metadata    string
		)

		if err := rows.Scan(&summary.ID, &summary.Owner, &lastSavedAt, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}

		if lastSavedAt.Valid {
			t := lastSavedAt.Time.UTC()
			summary.LastSavedAt = &t
		}

		if summary.Metadata, err = models.DecodeObject([]byte(metadata)); err != nil {
			return nil, fmt.Errorf("%w: song %s metadata: %v", shared.ErrInvalidDocument, summary.ID, err)
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return summaries, nil
}

func encodeSong(song models.Song) (document, metadata string, err error) {
	doc, err := json.Marshal(song)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", shared.ErrInvalidDocument, err)
	}

	meta := song.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", shared.ErrInvalidDocument, err)
	}

	return string(doc), string(metaJSON), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
