// package tasks implements the library sorting operation.
//
// The core abstraction is SortEngine, which fetches a user's liked songs,
// classifies each one, and distributes them into genre-named playlists.
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/genrify/internal/classifier"
	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/services"
	"github.com/desertthunder/genrify/internal/shared"
	"golang.org/x/time/rate"
)

// PlaylistDescription is the description given to auto-created genre playlists.
func PlaylistDescription(genre string) string {
	return fmt.Sprintf("Auto-created playlist for %s songs", genre)
}

// SortOptions configures a sort run.
type SortOptions struct {
	Limit     int     // Cap on liked songs to process; 0 or less processes the whole library
	DryRun    bool    // Classify and report without creating playlists or adding tracks
	Public    bool    // Create genre playlists as public instead of private
	RateLimit float64 // Spotify requests per second; 0 or less uses a conservative default
}

// TrackFailure pairs a track with the error that kept it out of a playlist.
type TrackFailure struct {
	Track models.Track
	Err   error
}

// GenreBucket groups the tracks classified into one genre and the playlist
// that received them.
type GenreBucket struct {
	Genre    classifier.Genre // Canonical genre label
	Playlist *models.Playlist // Target playlist (nil in dry runs without an existing playlist)
	Created  bool             // Whether the playlist was created this run
	Added    []models.Track   // Tracks added to the playlist this run
	Skipped  []models.Track   // Tracks already present in the playlist
}

// SortResult contains all data from a sort run.
type SortResult struct {
	TotalTracks      int            // Liked songs fetched
	ClassifiedTracks int            // Tracks that received a genre
	AddedTracks      int            // Tracks added to playlists
	SkippedTracks    int            // Tracks skipped as duplicates
	FailedTracks     int            // Tracks that could not be sorted
	NoFeatures       []models.Track // Tracks with no audio analysis available
	Failures         []TrackFailure // Per-track failures
	Buckets          []GenreBucket  // Per-genre outcome, sorted by genre
	DryRun           bool           // Whether mutations were suppressed
	Duration         time.Duration  // Wall time of the run

	// Features holds the fetched audio analysis keyed by track ID, for
	// callers that persist classification results.
	Features map[string]models.AudioFeatures
}

// SortEngine defines the library sorting operation.
type SortEngine interface {
	// Run sorts the user's liked songs into genre playlists.
	Run(ctx context.Context, opts SortOptions, progress chan<- ProgressUpdate) (*SortResult, error)
}

// LibraryEngine implements [SortEngine] against a streaming service and a
// genre classifier.
type LibraryEngine struct {
	service    services.Service
	classifier classifier.Classifier
	limiter    *rate.Limiter
}

// NewLibraryEngine creates a new LibraryEngine with the provided service and classifier.
func NewLibraryEngine(service services.Service, c classifier.Classifier) *LibraryEngine {
	return &LibraryEngine{
		service:    service,
		classifier: c,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// wait blocks on the rate limiter before the next service call.
func (e *LibraryEngine) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// Run sorts the user's liked songs into genre playlists.
//
// The run never adds a track twice to the same playlist and never creates two
// playlists for one genre: existing playlists are matched case-insensitively
// across the user's whole library before any create.
func (e *LibraryEngine) Run(ctx context.Context, opts SortOptions, progress chan<- ProgressUpdate) (*SortResult, error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: streaming service not initialized", shared.ErrServiceUnavailable)
	}
	if e.classifier == nil {
		return nil, fmt.Errorf("%w: classifier not initialized", shared.ErrServiceUnavailable)
	}

	limit := opts.RateLimit
	if limit <= 0 {
		limit = 10
	}
	e.limiter = rate.NewLimiter(rate.Limit(limit), 1)

	started := time.Now()
	result := &SortResult{DryRun: opts.DryRun}

	// Phase 1: liked songs
	e.sendProgress(progress, fetchLikedUpdate(1, 1))

	if err := e.wait(ctx); err != nil {
		return nil, err
	}
	tracks, err := e.service.LikedTracks(ctx, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch liked songs: %w", shared.ErrAPIRequest, err)
	}

	result.TotalTracks = len(tracks)
	e.sendProgress(progress, likedFetchedUpdate(len(tracks)))

	if len(tracks) == 0 {
		result.Duration = time.Since(started)
		e.sendProgress(progress, doneUpdate(result))
		return result, nil
	}

	// Phase 2: audio features
	featureMap, err := e.fetchFeatures(ctx, tracks, progress)
	if err != nil {
		return nil, err
	}
	result.Features = featureMap

	// Phase 3: classification
	buckets := map[classifier.Genre][]models.Track{}

	for i, track := range tracks {
		features, ok := featureMap[track.ID]
		if !ok {
			result.NoFeatures = append(result.NoFeatures, track)
			e.sendProgress(progress, classifyUpdate(i+1, len(tracks), &track, "(no features)"))
			continue
		}

		genre, err := e.classifier.Classify(ctx, track, features)
		if err != nil {
			result.Failures = append(result.Failures, TrackFailure{Track: track, Err: err})
			continue
		}

		buckets[genre] = append(buckets[genre], track)
		result.ClassifiedTracks++
		e.sendProgress(progress, classifyUpdate(i+1, len(tracks), &track, string(genre)))
	}

	genres := make([]classifier.Genre, 0, len(buckets))
	for genre := range buckets {
		genres = append(genres, genre)
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i] < genres[j] })

	// Phase 4 & 5: playlists and adds
	if err := e.distribute(ctx, genres, buckets, opts, result, progress); err != nil {
		result.Duration = time.Since(started)
		return result, err
	}

	result.SkippedTracks += len(result.NoFeatures)
	result.FailedTracks = len(result.Failures)
	result.Duration = time.Since(started)
	e.sendProgress(progress, doneUpdate(result))

	return result, nil
}

// fetchFeatures retrieves audio features for all tracks, keyed by track ID.
func (e *LibraryEngine) fetchFeatures(ctx context.Context, tracks []models.Track, progress chan<- ProgressUpdate) (map[string]models.AudioFeatures, error) {
	ids := make([]string, 0, len(tracks))
	for _, track := range tracks {
		ids = append(ids, track.ID)
	}

	totalBatches := (len(ids) + 99) / 100
	featureMap := make(map[string]models.AudioFeatures, len(ids))

	for start := 0; start < len(ids); start += 100 {
		end := min(start+100, len(ids))
		batch := start/100 + 1

		e.sendProgress(progress, fetchFeaturesUpdate(batch, totalBatches))

		if err := e.wait(ctx); err != nil {
			return nil, err
		}
		features, err := e.service.AudioFeatures(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: failed to fetch audio features: %w", shared.ErrAPIRequest, err)
		}

		for _, f := range features {
			featureMap[f.ID] = f
		}
	}

	return featureMap, nil
}

// distribute ensures a playlist exists per genre and adds the bucketed tracks,
// skipping tracks the playlist already contains.
func (e *LibraryEngine) distribute(ctx context.Context, genres []classifier.Genre, buckets map[classifier.Genre][]models.Track, opts SortOptions, result *SortResult, progress chan<- ProgressUpdate) error {
	// Fetched in dry runs too, to report which playlists would be reused.
	if err := e.wait(ctx); err != nil {
		return err
	}
	existing, err := e.service.GetPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to list playlists: %w", shared.ErrAPIRequest, err)
	}

	byName := make(map[string]models.Playlist, len(existing))
	for _, pl := range existing {
		byName[strings.ToLower(pl.Name)] = pl
	}

	for i, genre := range genres {
		bucket := GenreBucket{Genre: genre}
		tracks := buckets[genre]

		if pl, ok := byName[strings.ToLower(string(genre))]; ok {
			bucket.Playlist = &pl
		} else if !opts.DryRun {
			if err := e.wait(ctx); err != nil {
				return err
			}
			created, err := e.service.CreatePlaylist(ctx, string(genre), PlaylistDescription(string(genre)), opts.Public)
			if err != nil {
				return fmt.Errorf("%w: failed to create playlist for %s: %w", shared.ErrAPIRequest, genre, err)
			}
			bucket.Playlist = created
			bucket.Created = true
			byName[strings.ToLower(string(genre))] = *created
		}

		e.sendProgress(progress, ensurePlaylistUpdate(i+1, len(genres), string(genre), bucket.Created))

		toAdd, skipped, err := e.dedupe(ctx, bucket.Playlist, tracks)
		if err != nil {
			return err
		}
		bucket.Skipped = skipped
		result.SkippedTracks += len(skipped)

		e.sendProgress(progress, addTracksUpdate(i+1, len(genres), string(genre), len(toAdd)))

		if !opts.DryRun && bucket.Playlist != nil && len(toAdd) > 0 {
			ids := make([]string, 0, len(toAdd))
			for _, track := range toAdd {
				ids = append(ids, track.ID)
			}

			if err := e.wait(ctx); err != nil {
				return err
			}
			if err := e.service.AddTracks(ctx, bucket.Playlist.ID, ids); err != nil {
				for _, track := range toAdd {
					result.Failures = append(result.Failures, TrackFailure{Track: track, Err: err})
				}
				result.Buckets = append(result.Buckets, bucket)
				continue
			}
		}

		bucket.Added = toAdd
		result.AddedTracks += len(toAdd)
		result.Buckets = append(result.Buckets, bucket)
	}

	return nil
}

// dedupe splits tracks into ones missing from the playlist and ones it
// already contains.
func (e *LibraryEngine) dedupe(ctx context.Context, playlist *models.Playlist, tracks []models.Track) (toAdd, skipped []models.Track, err error) {
	if playlist == nil || playlist.TrackCount == 0 {
		return tracks, nil, nil
	}

	if err := e.wait(ctx); err != nil {
		return nil, nil, err
	}
	existingIDs, err := e.service.PlaylistTrackIDs(ctx, playlist.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to list playlist tracks: %w", shared.ErrAPIRequest, err)
	}

	present := make(map[string]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		present[id] = struct{}{}
	}

	for _, track := range tracks {
		if _, ok := present[track.ID]; ok {
			skipped = append(skipped, track)
		} else {
			toAdd = append(toAdd, track)
		}
	}

	return toAdd, skipped, nil
}

// GenreCounts summarizes a result as genre → added-track count.
func (r *SortResult) GenreCounts() map[string]int {
	counts := make(map[string]int, len(r.Buckets))
	for _, bucket := range r.Buckets {
		counts[string(bucket.Genre)] = len(bucket.Added)
	}
	return counts
}
