package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/shared"
)

// UserRepository implements [models.UserStore] for user [models.User] persistence.
type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB, opts ...Option) *UserRepository {
	o := newOptions(opts)
	return &UserRepository{db: db, now: o.now}
}

// Upsert creates the user if absent and otherwise updates its name when one is given.
//
// A nil name never clears a stored one. Returns the stored user.
func (r *UserRepository) Upsert(ctx context.Context, user models.User) (models.User, error) {
	now := r.now().UTC()
	query := `
		INSERT INTO users (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = COALESCE(excluded.name, users.name),
			updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, user.ID, nullString(user.Name), now, now); err != nil {
		return models.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}

	return r.Get(ctx, user.ID)
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (models.User, error) {
	var (
		userID string
		name   sql.NullString
	)

	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM users WHERE id = ?`, id).Scan(&userID, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query user %s: %w", id, err)
	}

	user := models.User{ID: userID}
	if name.Valid {
		user.Name = &name.String
	}

	return user, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
