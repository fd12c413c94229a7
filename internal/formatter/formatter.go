// package formatter exports a user's songs and their tracklists to CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/chordpaper/internal/models"
)

// Metadata keys read from a song's metadata object.
const (
	TitleKey       = "title"
	ComposedByKey  = "composedBy"
	PerformedByKey = "performedBy"
)

// SongExport is one song of an export together with its tracklist.
type SongExport struct {
	Song   models.SongSummary
	Tracks []models.Track
}

// Title returns the song title, or "Untitled".
func (e SongExport) Title() string {
	if title := metadataString(e.Song.Metadata, TitleKey); title != "" {
		return title
	}
	return "Untitled"
}

func metadataString(metadata map[string]any, key string) string {
	s, _ := metadata[key].(string)
	return s
}

func savedAt(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ExportToCSV writes one row per song with columns: ID, Title, Composed By, Performed By, Last Saved, Tracks
func ExportToCSV(songs []SongExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Composed By", "Performed By", "Last Saved", "Tracks"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range songs {
		record := []string{
			s.Song.ID,
			s.Title(),
			metadataString(s.Song.Metadata, ComposedByKey),
			metadataString(s.Song.Metadata, PerformedByKey),
			savedAt(s.Song.LastSavedAt),
			strconv.Itoa(len(s.Tracks)),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the songs of owner as a Markdown document with a section per song.
func ExportToMarkdown(owner string, songs []SongExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Songs of %s\n\n", owner)
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(songs))

	for _, s := range songs {
		fmt.Fprintf(&buf, "## %s\n\n", s.Title())
		if by := metadataString(s.Song.Metadata, PerformedByKey); by != "" {
			fmt.Fprintf(&buf, "**Performed by**: %s\n\n", by)
		}
		if by := metadataString(s.Song.Metadata, ComposedByKey); by != "" {
			fmt.Fprintf(&buf, "**Composed by**: %s\n\n", by)
		}
		fmt.Fprintf(&buf, "**ID**: `%s`\n\n", s.Song.ID)
		if at := savedAt(s.Song.LastSavedAt); at != "" {
			fmt.Fprintf(&buf, "**Last saved**: %s\n\n", at)
		}

		if len(s.Tracks) == 0 {
			buf.WriteString("No tracks.\n\n")
			continue
		}

		buf.WriteString("| # | Type | Status |\n|---|------|--------|\n")
		for i, track := range s.Tracks {
			status := string(track.JobStatus())
			if status == "" {
				status = "-"
			}
			fmt.Fprintf(&buf, "| %d | %s | %s |\n", i+1, track.TrackType, status)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts the songs to a plain numbered list.
func ExportToText(songs []SongExport) ([]byte, error) {
	var buf bytes.Buffer

	for i, s := range songs {
		fmt.Fprintf(&buf, "%d. %s", i+1, s.Title())
		if by := metadataString(s.Song.Metadata, PerformedByKey); by != "" {
			fmt.Fprintf(&buf, " - %s", by)
		}
		fmt.Fprintf(&buf, " (%d tracks", len(s.Tracks))
		splitting, failed := splitCounts(s.Tracks)
		if splitting > 0 {
			fmt.Fprintf(&buf, ", %d splitting", splitting)
		}
		if failed > 0 {
			fmt.Fprintf(&buf, ", %d failed", failed)
		}
		buf.WriteString(")\n")
	}

	return buf.Bytes(), nil
}

// splitCounts counts the tracks whose split job is still running and those whose job failed.
func splitCounts(tracks []models.Track) (splitting, failed int) {
	for _, track := range tracks {
		switch track.JobStatus() {
		case models.RequestedStatus, models.ProcessingStatus:
			splitting++
		case models.ErrorStatus:
			failed++
		}
	}
	return splitting, failed
}

// Export renders songs in format, one of "csv", "markdown" (or "md") and "text".
func Export(format, owner string, songs []SongExport) ([]byte, error) {
	switch format {
	case "csv":
		return ExportToCSV(songs)
	case "markdown", "md":
		return ExportToMarkdown(owner, songs)
	case "text", "txt":
		return ExportToText(songs)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteExport writes data to path, creating missing parent directories.
func WriteExport(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	return nil
}
