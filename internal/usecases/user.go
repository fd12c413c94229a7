package usecases

import (
	"context"

	"github.com/desertthunder/chordpaper/internal/models"
)

// UserUsecase handles login and the songs listing of a user.
type UserUsecase struct {
	users    models.UserStore
	songs    models.SongStore
	verifier models.IdentityVerifier
}

// NewUserUsecase creates a [UserUsecase].
func NewUserUsecase(users models.UserStore, songs models.SongStore, verifier models.IdentityVerifier) *UserUsecase {
	return &UserUsecase{users: users, songs: songs, verifier: verifier}
}

// Login verifies token and upserts the account it identifies. Repeated logins converge on the same user.
func (u *UserUsecase) Login(ctx context.Context, token string) (models.User, error) {
	identity, err := u.verifier.Verify(ctx, token)
	if err != nil {
		return models.User{}, verificationFailed(err)
	}

	user, err := u.users.Upsert(ctx, identity.User())
	if err != nil {
		return models.User{}, datastoreError(err)
	}

	return user, nil
}

// SongsForOwner lists the songs of ownerID, who must be the caller.
func (u *UserUsecase) SongsForOwner(ctx context.Context, token, ownerID string) ([]models.SongSummary, error) {
	identity, err := u.verifier.Verify(ctx, token)
	if err != nil {
		return nil, verificationFailed(err)
	}

	if identity.ID != ownerID {
		return nil, &Error{
			Kind: OwnerVerificationError,
			ID:   ownerID,
			Msg:  "songs can only be listed by their owner",
		}
	}

	summaries, err := u.songs.QueryByOwner(ctx, ownerID)
	if err != nil {
		return nil, datastoreError(err)
	}
	if summaries == nil {
		summaries = []models.SongSummary{}
	}

	return summaries, nil
}
