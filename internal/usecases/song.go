package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/shared"
)

// SongUsecase orchestrates the song lifecycle.
type SongUsecase struct {
	songs    models.SongStore
	verifier models.IdentityVerifier
	now      func() time.Time
}

// NewSongUsecase creates a [SongUsecase] over the given store and verifier.
func NewSongUsecase(songs models.SongStore, verifier models.IdentityVerifier, opts ...Option) *SongUsecase {
	o := newOptions(opts)
	return &SongUsecase{songs: songs, verifier: verifier, now: o.now}
}

// GetSong returns the song with the given id. Anything that is not a UUID is reported as not found
// without querying the store.
func (u *SongUsecase) GetSong(ctx context.Context, id string) (models.Song, error) {
	return getSong(ctx, u.songs, id)
}

// CreateSong assigns a fresh id and lastSavedAt to a new song owned by the caller and stores it.
func (u *SongUsecase) CreateSong(ctx context.Context, token string, song models.Song) (models.Song, error) {
	identity, err := u.verifier.Verify(ctx, token)
	if err != nil {
		return models.Song{}, verificationFailed(err)
	}

	if !song.IsNew() {
		return models.Song{}, &Error{
			Kind: ExistingConflict,
			ID:   song.ID,
			Msg:  fmt.Sprintf("song %q already has an id, use update instead", song.ID),
		}
	}

	if song.Owner != identity.ID {
		return models.Song{}, wrongOwner(song.ID)
	}

	song.ID = shared.GenerateID()
	saved := saveTimestamp(u.now(), nil)
	song.LastSavedAt = &saved

	if err := u.songs.Create(ctx, song); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return models.Song{}, &Error{Kind: ExistingConflict, ID: song.ID, Msg: "song already exists", Err: err}
		}
		return models.Song{}, datastoreError(err)
	}

	return song, nil
}

// UpdateSong replaces the stored song at pathID with song after checking ownership and that the caller
// has seen the latest save.
func (u *SongUsecase) UpdateSong(ctx context.Context, token, pathID string, song models.Song) (models.Song, error) {
	identity, err := u.verifier.Verify(ctx, token)
	if err != nil {
		return models.Song{}, verificationFailed(err)
	}

	if pathID == "" {
		return models.Song{}, notFound(pathID)
	}

	if pathID != song.ID {
		return models.Song{}, &Error{
			Kind: WrongId,
			ID:   pathID,
			Msg:  fmt.Sprintf("song id %q does not match the requested id %q", song.ID, pathID),
		}
	}

	if song.Owner != identity.ID {
		return models.Song{}, wrongOwner(song.ID)
	}

	current, err := u.checkOverwrite(ctx, song)
	if err != nil {
		return models.Song{}, err
	}

	if current.Owner != identity.ID {
		return models.Song{}, wrongOwner(song.ID)
	}

	saved := saveTimestamp(u.now(), current.LastSavedAt)
	song.LastSavedAt = &saved

	if err := u.songs.Update(ctx, song); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return models.Song{}, notFound(song.ID)
		}
		return models.Song{}, datastoreError(err)
	}

	return song, nil
}

// checkOverwrite rejects incoming when it is not based on the latest stored save, returning the stored song.
//
// The check is not atomic with the write that follows it.
func (u *SongUsecase) checkOverwrite(ctx context.Context, incoming models.Song) (models.Song, error) {
	if incoming.LastSavedAt == nil {
		return models.Song{}, &Error{
			Kind: OverwriteConflict,
			ID:   incoming.ID,
			Msg:  "song has no lastSavedAt and would overwrite the stored version",
		}
	}

	current, err := getSong(ctx, u.songs, incoming.ID)
	if err != nil {
		return models.Song{}, err
	}

	if current.LastSavedAt != nil && current.LastSavedAt.After(*incoming.LastSavedAt) {
		return models.Song{}, &Error{
			Kind: OverwriteConflict,
			ID:   incoming.ID,
			Msg: fmt.Sprintf("song was saved at %s, after the version being saved (%s)",
				current.LastSavedAt.UTC().Format(time.RFC3339), incoming.LastSavedAt.UTC().Format(time.RFC3339)),
		}
	}

	return current, nil
}

// DeleteSong deletes a song owned by the caller.
func (u *SongUsecase) DeleteSong(ctx context.Context, token, songID string) error {
	if songID == "" {
		return notFound(songID)
	}

	current, err := getSong(ctx, u.songs, songID)
	if err != nil {
		return err
	}

	if current.ID != songID {
		return &Error{Kind: WrongId, ID: songID, Msg: fmt.Sprintf("stored song id %q does not match %q", current.ID, songID)}
	}

	identity, err := u.verifier.Verify(ctx, token)
	if err != nil {
		return verificationFailed(err)
	}

	if current.Owner != identity.ID {
		return wrongOwner(songID)
	}

	if err := u.songs.Delete(ctx, songID); err != nil {
		return datastoreError(err)
	}

	return nil
}

func getSong(ctx context.Context, songs models.SongStore, id string) (models.Song, error) {
	if !shared.IsValidID(id) {
		return models.Song{}, notFound(id)
	}

	song, err := songs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return models.Song{}, notFound(id)
		}
		return models.Song{}, datastoreError(err)
	}

	return song, nil
}

func wrongOwner(id string) *Error {
	return &Error{Kind: WrongOwner, ID: id, Msg: "song is not owned by the authenticated user"}
}
