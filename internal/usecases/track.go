package usecases

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/shared"
)

// TrackUsecase orchestrates the tracklist of a song and the split jobs its tracks request.
type TrackUsecase struct {
	tracks    models.TrackStore
	songs     models.SongStore
	verifier  models.IdentityVerifier
	publisher models.JobPublisher
	logger    *log.Logger
}

// NewTrackUsecase creates a [TrackUsecase].
func NewTrackUsecase(
	tracks models.TrackStore,
	songs models.SongStore,
	verifier models.IdentityVerifier,
	publisher models.JobPublisher,
	opts ...Option,
) *TrackUsecase {
	o := newOptions(opts)
	return &TrackUsecase{tracks: tracks, songs: songs, verifier: verifier, publisher: publisher, logger: o.logger}
}

// GetTrackList returns the tracklist of a song. A song without a stored tracklist, or an id that is not a
// UUID, yields an empty tracklist.
func (u *TrackUsecase) GetTrackList(ctx context.Context, songID string) (models.TrackList, error) {
	if !shared.IsValidID(songID) {
		return models.NewTrackList(songID), nil
	}

	tracklist, err := u.tracks.Get(ctx, songID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return models.NewTrackList(songID), nil
		}
		return models.TrackList{}, datastoreError(err)
	}

	if tracklist.Tracks == nil {
		tracklist.Tracks = []models.Track{}
	}
	return tracklist, nil
}

// SetTrackList replaces the tracklist of a song owned by the caller.
//
// Tracks without an id are assigned one. Every such track of a split type is stamped as requested and one
// split job is published for it after the tracklist is stored. Publish failures do not undo the write:
// the stored tracklist is returned together with a PublishError.
func (u *TrackUsecase) SetTrackList(ctx context.Context, token, pathSongID string, tracklist models.TrackList) (models.TrackList, error) {
	if tracklist.SongID == "" || tracklist.SongID != pathSongID {
		return models.TrackList{}, &Error{
			Kind: InvalidId,
			ID:   pathSongID,
			Msg:  fmt.Sprintf("tracklist song id %q does not match the requested song %q", tracklist.SongID, pathSongID),
		}
	}

	identity, err := u.verifier.Verify(ctx, token)
	if err != nil {
		return models.TrackList{}, verificationFailed(err)
	}

	song, err := getSong(ctx, u.songs, tracklist.SongID)
	if err != nil {
		return models.TrackList{}, err
	}

	if song.Owner != identity.ID {
		return models.TrackList{}, wrongOwner(song.ID)
	}

	tracklist, pending := assignTrackIDs(tracklist)

	if err := u.tracks.Put(ctx, tracklist); err != nil {
		if errors.Is(err, shared.ErrTrackListTooLarge) {
			return models.TrackList{}, &Error{
				Kind: TrackListTooLarge,
				ID:   tracklist.SongID,
				Msg:  fmt.Sprintf("a tracklist holds at most %d tracks", models.MaxTracks),
				Err:  err,
			}
		}
		return models.TrackList{}, datastoreError(err)
	}

	if err := u.publish(ctx, pending); err != nil {
		return tracklist, &Error{
			Kind: PublishError,
			ID:   tracklist.SongID,
			Msg:  "tracklist was saved but split jobs could not be requested",
			Err:  err,
		}
	}

	return tracklist, nil
}

// assignTrackIDs copies tracklist, giving every track without an id a fresh one and stamping new split
// tracks. It returns the jobs to publish for the new split tracks in track order.
func assignTrackIDs(tracklist models.TrackList) (models.TrackList, []models.SplitJob) {
	out := models.TrackList{SongID: tracklist.SongID, Tracks: make([]models.Track, len(tracklist.Tracks))}
	var pending []models.SplitJob

	for i, track := range tracklist.Tracks {
		track.Contents = maps.Clone(track.Contents)

		if track.IsNew() {
			track.ID = shared.GenerateID()
			if track.IsSplitRequest() {
				track.InitializeSplitRequest()
				pending = append(pending, models.SplitJob{TrackListID: tracklist.SongID, TrackID: track.ID})
			}
		}

		out.Tracks[i] = track
	}

	return out, pending
}

func (u *TrackUsecase) publish(ctx context.Context, jobs []models.SplitJob) error {
	var errs []error
	for _, job := range jobs {
		if err := u.publisher.Publish(ctx, job); err != nil {
			u.logger.Warn("failed to publish split job", "tracklist", job.TrackListID, "track", job.TrackID, "error", err)
			errs = append(errs, fmt.Errorf("track %s: %w", job.TrackID, err))
		}
	}
	return errors.Join(errs...)
}
