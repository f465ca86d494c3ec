// package formatter exports sort reports and playlist data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/shared"
	"github.com/desertthunder/genrify/internal/tasks"
)

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Artist, Album, Duration, ISRC
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "ISRC"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.Duration),
			track.ISRC,
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

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", export.Playlist.Name))
	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", export.Playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Tracks)))

	for i, track := range export.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Title))
	}

	return buf.Bytes(), nil
}

// ReportToCSV converts a sort result to CSV with one row per track outcome.
//
// Columns: Genre, Playlist, Track ID, Title, Artist, Outcome.
func ReportToCSV(result *tasks.SortResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Genre", "Playlist", "Track ID", "Title", "Artist", "Outcome"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	writeTrack := func(genre, playlist string, track models.Track, outcome string) error {
		return writer.Write([]string{genre, playlist, track.ID, track.Title, track.Artist, outcome})
	}

	for _, bucket := range result.Buckets {
		playlistName := ""
		if bucket.Playlist != nil {
			playlistName = bucket.Playlist.Name
		}
		for _, track := range bucket.Added {
			if err := writeTrack(string(bucket.Genre), playlistName, track, "added"); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		for _, track := range bucket.Skipped {
			if err := writeTrack(string(bucket.Genre), playlistName, track, "skipped"); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	for _, failure := range result.Failures {
		if err := writeTrack("", "", failure.Track, "failed"); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown converts a sort result to a Markdown report.
func ReportToMarkdown(result *tasks.SortResult) ([]byte, error) {
	var buf bytes.Buffer

	title := "Sort Report"
	if result.DryRun {
		title = "Sort Report (Dry Run)"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	buf.WriteString(fmt.Sprintf("**Liked songs**: %d\n", result.TotalTracks))
	buf.WriteString(fmt.Sprintf("**Classified**: %d\n", result.ClassifiedTracks))
	buf.WriteString(fmt.Sprintf("**Added**: %d\n", result.AddedTracks))
	buf.WriteString(fmt.Sprintf("**Skipped**: %d\n", result.SkippedTracks))
	if len(result.NoFeatures) > 0 {
		buf.WriteString(fmt.Sprintf("**No audio features**: %d\n", len(result.NoFeatures)))
	}
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n\n", result.Duration.Round(time.Millisecond)))

	buf.WriteString("## Genres\n\n")
	buf.WriteString("| Genre | Playlist | Added | Skipped |\n")
	buf.WriteString("| --- | --- | --- | --- |\n")
	for _, bucket := range result.Buckets {
		playlistName := "(would create)"
		if bucket.Playlist != nil {
			playlistName = bucket.Playlist.Name
			if bucket.Created {
				playlistName += " (new)"
			}
		}
		buf.WriteString(fmt.Sprintf("| %s | %s | %d | %d |\n",
			bucket.Genre, playlistName, len(bucket.Added), len(bucket.Skipped)))
	}

	if len(result.Failures) > 0 {
		buf.WriteString("\n## Failures\n\n")
		for i, failure := range result.Failures {
			buf.WriteString(fmt.Sprintf("%d. %s - %s: %v\n", i+1, failure.Track.Artist, failure.Track.Title, failure.Err))
		}
	}

	return buf.Bytes(), nil
}

// ReportToText converts a sort result to a plain text summary.
func ReportToText(result *tasks.SortResult) ([]byte, error) {
	var buf bytes.Buffer

	if result.DryRun {
		buf.WriteString("Dry run: no playlists were created or modified.\n")
	}
	buf.WriteString(fmt.Sprintf("Liked songs: %d\n", result.TotalTracks))
	buf.WriteString(fmt.Sprintf("Classified: %d\n", result.ClassifiedTracks))
	buf.WriteString(fmt.Sprintf("Added: %d, skipped: %d, failed: %d\n\n", result.AddedTracks, result.SkippedTracks, result.FailedTracks))

	for _, bucket := range result.Buckets {
		playlistName := "(would create)"
		if bucket.Playlist != nil {
			playlistName = bucket.Playlist.Name
		}
		buf.WriteString(fmt.Sprintf("%s -> %s: %d added, %d skipped\n",
			bucket.Genre, playlistName, len(bucket.Added), len(bucket.Skipped)))
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// WriteReport writes a sort result to disk in the given format.
//
// Supported formats: csv, markdown, text. Defaults to sort_report.{ext} when
// no path is given. Returns the path written.
func WriteReport(result *tasks.SortResult, format, path string) (string, error) {
	var (
		data []byte
		err  error
		ext  string
	)

	switch format {
	case "csv":
		data, err = ReportToCSV(result)
		ext = "csv"
	case "markdown", "md":
		data, err = ReportToMarkdown(result)
		ext = "md"
	case "text", "txt", "":
		data, err = ReportToText(result)
		ext = "txt"
	default:
		return "", fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidInput, format)
	}
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "sort_report." + ext
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *models.PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}
