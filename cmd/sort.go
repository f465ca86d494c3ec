package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"

	"github.com/desertthunder/genrify/internal/classifier"
	"github.com/desertthunder/genrify/internal/formatter"
	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/repositories"
	"github.com/desertthunder/genrify/internal/services"
	"github.com/desertthunder/genrify/internal/shared"
	"github.com/desertthunder/genrify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SortRun fetches, classifies, and distributes liked songs into genre playlists.
func (r *Runner) SortRun(ctx context.Context, cmd *cli.Command) error {
	opts := tasks.SortOptions{
		Limit:     cmd.Int("limit"),
		DryRun:    cmd.Bool("dry-run"),
		Public:    cmd.Bool("public"),
		RateLimit: cmd.Float("rate-limit"),
	}

	if err := r.connectSpotify(ctx, cmd); err != nil {
		return err
	}

	r.logger.Info("starting sort", "limit", opts.Limit, "dry_run", opts.DryRun)
	if opts.DryRun {
		r.writePlain("Starting library sort (dry run)...\n\n")
	} else {
		r.writePlain("Starting library sort...\n\n")
	}

	runOnce := func() (*tasks.SortResult, error) {
		progressCh := make(chan tasks.ProgressUpdate, 50)
		go func() {
			for update := range progressCh {
				switch update.Phase {
				case tasks.FetchLiked:
					r.writePlain("📥 %s\n", update.Message)
				case tasks.FetchFeatures:
					r.writePlain("🎚  %s\n", update.Message)
				case tasks.ClassifyTracks:
					r.writePlain("   %s\n", update.Message)
				case tasks.EnsurePlaylists:
					r.writePlain("\n📝 %s\n", update.Message)
				case tasks.AddTracks:
					r.writePlain("➕ %s\n", update.Message)
				}
			}
		}()

		result, err := r.engine.Run(ctx, opts, progressCh)
		close(progressCh)
		return result, err
	}

	result, err := runOnce()
	if err != nil {
		if reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd); reauthed {
			if authErr != nil {
				return authErr
			}
			result, err = runOnce()
		}
	}

	if !opts.DryRun {
		r.persistRun(ctx, cmd.String("config"), result, err)
	}

	if err != nil {
		return err
	}

	r.writePlain("\n")
	if opts.DryRun {
		r.writePlainHeader("Dry Run Complete")
	} else {
		r.writePlainHeader("Sort Complete!")
	}
	r.writePlain("Liked songs: %d\n", result.TotalTracks)
	r.writePlain("Classified: %d\n", result.ClassifiedTracks)
	r.writePlain("Added: %d, skipped: %d, failed: %d\n\n", result.AddedTracks, result.SkippedTracks, result.FailedTracks)

	for _, bucket := range result.Buckets {
		name := "(would create)"
		if bucket.Playlist != nil {
			name = bucket.Playlist.Name
			if bucket.Created {
				name += " (new)"
			}
		}
		r.writePlain("  %s → %s: %d added, %d skipped\n", bucket.Genre, name, len(bucket.Added), len(bucket.Skipped))
	}

	if len(result.NoFeatures) > 0 {
		r.writePlain("\n%d tracks had no audio features and were skipped:\n", len(result.NoFeatures))
		for _, track := range result.NoFeatures {
			r.writePlain("  - %s - %s\n", track.Artist, track.Title)
		}
	}

	if result.FailedTracks > 0 {
		r.writePlain("\nFailed to sort %d tracks:\n", result.FailedTracks)
		for _, failure := range result.Failures {
			r.writePlain("  - %s - %s: %v\n", failure.Track.Artist, failure.Track.Title, failure.Err)
		}
	}

	return nil
}

// persistRun caches the run outcome in the local database. Failures are
// logged, not returned; persistence never blocks a completed sort.
func (r *Runner) persistRun(ctx context.Context, configPath string, result *tasks.SortResult, runErr error) {
	if result == nil {
		return
	}

	db, err := r.openDatabase(configPath)
	if err != nil {
		r.logger.Warn("skipping run persistence", "error", err)
		return
	}
	defer db.Close()

	tracks := repositories.NewTrackRepository(db)
	playlists := repositories.NewPlaylistRepository(db)
	runs := repositories.NewSortRunRepository(db)
	users := repositories.NewUserRepository(db)
	cache := repositories.NewLibraryCache(tracks, playlists, runs, users)

	if r.spotify != nil {
		if userID, err := r.spotify.CurrentUserID(ctx); err == nil {
			displayName := ""
			if profiler, ok := r.spotify.(interface {
				UserProfile(ctx context.Context) (*services.SpotifyUser, error)
			}); ok {
				if profile, err := profiler.UserProfile(ctx); err == nil {
					displayName = profile.DisplayName
				}
			}
			if err := cache.CacheUser(userID, displayName); err != nil {
				r.logger.Warn("failed to cache user", "error", err)
			}
		}
	}

	run := models.NewSortRun(0)
	run.SetTotals(result.TotalTracks, result.AddedTracks, result.SkippedTracks, result.FailedTracks)
	run.SetGenreCounts(result.GenreCounts())
	if runErr != nil {
		run.Complete(models.SortRunFailed)
	} else {
		run.Complete(models.SortRunCompleted)
	}

	if err := cache.RecordRun(run); err != nil {
		r.logger.Warn("failed to record sort run", "error", err)
	}

	for _, bucket := range result.Buckets {
		if bucket.Playlist != nil {
			if err := cache.CachePlaylist(*bucket.Playlist, string(bucket.Genre)); err != nil {
				r.logger.Warn("failed to cache playlist", "genre", bucket.Genre, "error", err)
			}
		}

		for _, track := range append(bucket.Added, bucket.Skipped...) {
			if err := cache.CacheTrack(track, string(bucket.Genre), result.Features[track.ID]); err != nil {
				r.logger.Warn("failed to cache track", "track", track.ID, "error", err)
			}
		}
	}
}

// SortReport exports the most recent sort run from the local cache.
func (r *Runner) SortReport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	outputPath := cmd.String("output")

	db, err := r.openDatabase(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("%w: run 'genrify setup database' first: %v", shared.ErrServiceUnavailable, err)
	}
	defer db.Close()

	runs := repositories.NewSortRunRepository(db)
	tracks := repositories.NewTrackRepository(db)
	playlists := repositories.NewPlaylistRepository(db)

	run, err := runs.Latest()
	if err != nil {
		return fmt.Errorf("no sort runs recorded: %w", err)
	}

	result, err := rebuildResult(run, tracks, playlists)
	if err != nil {
		return err
	}

	path, err := formatter.WriteReport(result, format, outputPath)
	if err != nil {
		return err
	}

	r.writePlain("✓ Report written to %s\n", path)
	r.writePlain("  Run: %s (%s)\n", run.ID(), run.Status())
	r.writePlain("  Sorted %d of %d tracks\n", run.SortedTracks(), run.TotalTracks())

	return nil
}

// SortExport writes a cached genre playlist to disk: a tracks CSV with a
// metadata JSON file, or a plain text listing.
func (r *Runner) SortExport(ctx context.Context, cmd *cli.Command) error {
	genre := string(classifier.CanonicalGenre(cmd.String("genre")))
	format := cmd.String("format")
	output := cmd.String("output")

	db, err := r.openDatabase(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("%w: run 'genrify setup database' first: %v", shared.ErrServiceUnavailable, err)
	}
	defer db.Close()

	playlists := repositories.NewPlaylistRepository(db)
	tracks := repositories.NewTrackRepository(db)

	persisted, err := playlists.GetByGenre(genre)
	if err != nil {
		return fmt.Errorf("no cached playlist for %s, run 'genrify sort run' first: %w", genre, err)
	}

	cached, err := tracks.List(map[string]any{"genre": genre})
	if err != nil {
		return fmt.Errorf("failed to load cached tracks: %w", err)
	}

	export := &models.PlaylistExport{Playlist: persisted.Playlist()}
	for _, track := range cached {
		export.Tracks = append(export.Tracks, track.Track())
	}

	switch format {
	case "csv", "":
		written, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d tracks to %s and %s\n", len(export.Tracks), written.TracksFile, written.MetadataFile)
	case "text", "txt":
		data, err := formatter.ExportToText(export)
		if err != nil {
			return err
		}
		if output == "" {
			output = persisted.Playlist().ID + "_tracks.txt"
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		r.writePlain("✓ Exported %d tracks to %s\n", len(export.Tracks), output)
	default:
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidInput, format)
	}

	return nil
}

// rebuildResult reconstructs a report-shaped result from the cached run,
// tracks, and playlists.
func rebuildResult(run *models.SortRun, tracks *repositories.TrackRepository, playlists *repositories.PlaylistRepository) (*tasks.SortResult, error) {
	result := &tasks.SortResult{
		TotalTracks:   run.TotalTracks(),
		AddedTracks:   run.SortedTracks(),
		SkippedTracks: run.SkippedTracks(),
		FailedTracks:  run.FailedTracks(),
	}
	if run.FinishedAt() != nil {
		result.Duration = run.FinishedAt().Sub(run.StartedAt())
	}

	for genre := range run.GenreCounts() {
		bucket := tasks.GenreBucket{Genre: classifier.Genre(genre)}

		cached, err := tracks.List(map[string]any{"genre": genre})
		if err != nil {
			return nil, fmt.Errorf("failed to load cached tracks: %w", err)
		}
		for _, track := range cached {
			bucket.Added = append(bucket.Added, track.Track())
			result.ClassifiedTracks++
		}

		if playlist, err := playlists.GetByGenre(genre); err == nil {
			dto := playlist.Playlist()
			bucket.Playlist = &dto
		}

		result.Buckets = append(result.Buckets, bucket)
	}

	sort.Slice(result.Buckets, func(i, j int) bool {
		return result.Buckets[i].Genre < result.Buckets[j].Genre
	})

	return result, nil
}

// openDatabase opens the configured sqlite database, failing when the file
// does not exist yet.
func (r *Runner) openDatabase(configPath string) (*sql.DB, error) {
	config := r.config
	if config == nil {
		if configPath == "" {
			configPath = "config.toml"
		}
		var err error
		if config, err = shared.LoadConfig(configPath); err != nil {
			config = shared.DefaultConfig()
		}
	}

	if _, err := os.Stat(config.Database.Path); err != nil {
		return nil, fmt.Errorf("database not initialized at %s: %w", config.Database.Path, err)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, err
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	return db, nil
}
