package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/chordpaper/internal/formatter"
	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/repositories"
	"github.com/desertthunder/chordpaper/internal/shared"
)

// SongsExport writes the songs of a user and their tracklists in the requested format.
func (r *Runner) SongsExport(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	owner := cmd.String("owner")
	format := cmd.String("format")
	outputPath := cmd.String("output")

	db, err := r.openDatabase(config, false)
	if err != nil {
		return err
	}
	defer db.Close()

	songRepo := repositories.NewSongRepository(db)
	trackRepo := repositories.NewTrackListRepository(db)

	summaries, err := songRepo.QueryByOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to list songs: %w", err)
	}

	exports := make([]formatter.SongExport, 0, len(summaries))
	for _, summary := range summaries {
		tracklist, err := trackRepo.Get(ctx, summary.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load tracklist of %s: %w", summary.ID, err)
		}
		exports = append(exports, formatter.SongExport{Song: summary, Tracks: tracklist.Tracks})
	}

	r.logger.Info("exporting songs", "owner", owner, "songs", len(exports), "format", format)

	if format == "json" {
		return r.writeExportJSON(exports, outputPath)
	}

	data, err := formatter.Export(format, owner, exports)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	if outputPath == "" {
		_, err := r.output.Write(data)
		return err
	}

	if err := formatter.WriteExport(outputPath, data); err != nil {
		return err
	}
	return r.writePlain("✓ Exported %d songs to %s\n", len(exports), outputPath)
}

type songExportJSON struct {
	models.SongSummary
	Tracks []models.Track `json:"tracks"`
}

func (r *Runner) writeExportJSON(exports []formatter.SongExport, outputPath string) error {
	out := make([]songExportJSON, len(exports))
	for i, e := range exports {
		tracks := e.Tracks
		if tracks == nil {
			tracks = []models.Track{}
		}
		out[i] = songExportJSON{SongSummary: e.Song, Tracks: tracks}
	}

	if outputPath == "" {
		return r.writeJSON(out, true)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := formatter.WriteExport(outputPath, data); err != nil {
		return err
	}
	return r.writePlain("✓ Exported %d songs to %s\n", len(exports), outputPath)
}
