package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/shared"
)

// JobsSend publishes one split job to the configured queue.
func (r *Runner) JobsSend(ctx context.Context, cmd *cli.Command) error {
	job := models.SplitJob{
		TrackListID: cmd.String("tracklist"),
		TrackID:     cmd.String("track"),
	}

	for name, id := range map[string]string{"tracklist": job.TrackListID, "track": job.TrackID} {
		if !shared.IsValidID(id) {
			return fmt.Errorf("%w: --%s must be a UUID, got %q", shared.ErrInvalidArgument, name, id)
		}
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	publisher, closePublisher, err := r.newPublisher(config)
	if err != nil {
		return err
	}
	defer closePublisher()

	if err := publisher.Publish(ctx, job); err != nil {
		return err
	}

	return r.writePlain("✓ Split job sent for track %s of tracklist %s\n", job.TrackID, job.TrackListID)
}
