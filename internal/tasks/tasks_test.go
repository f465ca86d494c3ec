package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/genrify/internal/classifier"
	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/shared"
	tu "github.com/desertthunder/genrify/internal/testing"
)

// fastOpts disables rate limiting delays in tests.
func fastOpts() SortOptions {
	return SortOptions{RateLimit: 1000}
}

func libraryFixture() *tu.MockService {
	return &tu.MockService{
		Tracks: []models.Track{
			{ID: "t1", Title: "Verses", Artist: "MC One"},
			{ID: "t2", Title: "Dance Floor", Artist: "Pop Star"},
			{ID: "t3", Title: "Campfire", Artist: "Folk Duo"},
			{ID: "t4", Title: "Distortion", Artist: "Loud Band"},
		},
		Features: []models.AudioFeatures{
			{ID: "t1", Speechiness: 0.6},
			{ID: "t2", Energy: 0.8, Danceability: 0.7},
			{ID: "t3", Acousticness: 0.8, Valence: 0.6},
			{ID: "t4", Energy: 0.7, Valence: 0.2},
		},
	}
}

func TestLibraryEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("sorts library into genre playlists", func(t *testing.T) {
		mock := libraryFixture()
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		result, err := engine.Run(ctx, fastOpts(), nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if result.TotalTracks != 4 {
			t.Errorf("expected 4 total tracks, got %d", result.TotalTracks)
		}
		if result.ClassifiedTracks != 4 {
			t.Errorf("expected 4 classified tracks, got %d", result.ClassifiedTracks)
		}
		if result.AddedTracks != 4 {
			t.Errorf("expected 4 added tracks, got %d", result.AddedTracks)
		}
		if result.FailedTracks != 0 {
			t.Errorf("expected no failures, got %d", result.FailedTracks)
		}

		if len(result.Buckets) != 4 {
			t.Fatalf("expected 4 buckets, got %d", len(result.Buckets))
		}

		// Buckets come back sorted by genre name.
		wantGenres := []classifier.Genre{
			classifier.GenreFolk,
			classifier.GenreHipHop,
			classifier.GenrePop,
			classifier.GenreRock,
		}
		for i, bucket := range result.Buckets {
			if bucket.Genre != wantGenres[i] {
				t.Errorf("bucket %d: expected %s, got %s", i, wantGenres[i], bucket.Genre)
			}
			if !bucket.Created {
				t.Errorf("bucket %s: expected playlist to be created", bucket.Genre)
			}
			if len(bucket.Added) != 1 {
				t.Errorf("bucket %s: expected 1 track, got %d", bucket.Genre, len(bucket.Added))
			}
		}

		if len(mock.Created) != 4 {
			t.Errorf("expected 4 created playlists, got %d", len(mock.Created))
		}
		if added := mock.Added["mock_playlist_Hip-Hop"]; len(added) != 1 || added[0] != "t1" {
			t.Errorf("unexpected Hip-Hop adds: %v", added)
		}

		if len(result.Features) != 4 {
			t.Errorf("expected features for 4 tracks, got %d", len(result.Features))
		}

		counts := result.GenreCounts()
		if counts["Pop"] != 1 {
			t.Errorf("expected 1 Pop track, got %d", counts["Pop"])
		}
	})

	t.Run("dry run suppresses mutations", func(t *testing.T) {
		mock := libraryFixture()
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		opts := fastOpts()
		opts.DryRun = true

		result, err := engine.Run(ctx, opts, nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if !result.DryRun {
			t.Error("expected dry run flag on result")
		}
		if len(mock.Created) != 0 {
			t.Errorf("expected no created playlists, got %d", len(mock.Created))
		}
		if len(mock.Added) != 0 {
			t.Errorf("expected no track additions, got %v", mock.Added)
		}

		// Classification still reports what would happen.
		if result.AddedTracks != 4 {
			t.Errorf("expected 4 would-be adds, got %d", result.AddedTracks)
		}
		for _, bucket := range result.Buckets {
			if bucket.Playlist != nil {
				t.Errorf("bucket %s: expected nil playlist in dry run", bucket.Genre)
			}
		}
	})

	t.Run("reuses existing playlists case-insensitively", func(t *testing.T) {
		mock := libraryFixture()
		mock.Playlists = []models.Playlist{
			{ID: "existing_hiphop", Name: "hip-hop", TrackCount: 0},
		}
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		result, err := engine.Run(ctx, fastOpts(), nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		for _, bucket := range result.Buckets {
			if bucket.Genre == classifier.GenreHipHop {
				if bucket.Created {
					t.Error("expected existing playlist to be reused")
				}
				if bucket.Playlist == nil || bucket.Playlist.ID != "existing_hiphop" {
					t.Errorf("unexpected playlist: %+v", bucket.Playlist)
				}
			}
		}
		if len(mock.Created) != 3 {
			t.Errorf("expected 3 created playlists, got %d", len(mock.Created))
		}
	})

	t.Run("skips tracks already in the playlist", func(t *testing.T) {
		mock := libraryFixture()
		mock.Playlists = []models.Playlist{
			{ID: "existing_hiphop", Name: "Hip-Hop", TrackCount: 1},
		}
		mock.PlaylistTracks = map[string][]string{
			"existing_hiphop": {"t1"},
		}
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		result, err := engine.Run(ctx, fastOpts(), nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if result.SkippedTracks != 1 {
			t.Errorf("expected 1 skipped track, got %d", result.SkippedTracks)
		}
		if result.AddedTracks != 3 {
			t.Errorf("expected 3 added tracks, got %d", result.AddedTracks)
		}
		if _, ok := mock.Added["existing_hiphop"]; ok {
			t.Error("expected no additions to the playlist that already has the track")
		}
	})

	t.Run("counts tracks without features as skipped", func(t *testing.T) {
		mock := libraryFixture()
		mock.Features = mock.Features[:3] // t4 has no analysis
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		result, err := engine.Run(ctx, fastOpts(), nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(result.NoFeatures) != 1 || result.NoFeatures[0].ID != "t4" {
			t.Errorf("unexpected NoFeatures: %v", result.NoFeatures)
		}
		if result.ClassifiedTracks != 3 {
			t.Errorf("expected 3 classified tracks, got %d", result.ClassifiedTracks)
		}
		if result.SkippedTracks != 1 {
			t.Errorf("expected 1 skipped track, got %d", result.SkippedTracks)
		}
	})

	t.Run("empty library", func(t *testing.T) {
		mock := &tu.MockService{}
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		result, err := engine.Run(ctx, fastOpts(), nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if result.TotalTracks != 0 {
			t.Errorf("expected 0 tracks, got %d", result.TotalTracks)
		}
		if len(result.Buckets) != 0 {
			t.Errorf("expected no buckets, got %d", len(result.Buckets))
		}
	})

	t.Run("limit passes through to the service", func(t *testing.T) {
		mock := libraryFixture()
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		opts := fastOpts()
		opts.Limit = 2

		result, err := engine.Run(ctx, opts, nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if result.TotalTracks != 2 {
			t.Errorf("expected 2 tracks, got %d", result.TotalTracks)
		}
	})

	t.Run("liked tracks failure", func(t *testing.T) {
		mock := &tu.MockService{
			LikedTracksFunc: func(ctx context.Context, max int) ([]models.Track, error) {
				return nil, errors.New("network down")
			},
		}
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		if _, err := engine.Run(ctx, fastOpts(), nil); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("add tracks failure records per-track failures", func(t *testing.T) {
		mock := libraryFixture()
		mock.AddTracksFunc = func(ctx context.Context, playlistID string, trackIDs []string) error {
			return errors.New("quota exceeded")
		}
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		result, err := engine.Run(ctx, fastOpts(), nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if result.FailedTracks != 4 {
			t.Errorf("expected 4 failed tracks, got %d", result.FailedTracks)
		}
		if result.AddedTracks != 0 {
			t.Errorf("expected 0 added tracks, got %d", result.AddedTracks)
		}
	})

	t.Run("add tracks failure keeps skip counts", func(t *testing.T) {
		mock := libraryFixture()
		mock.Playlists = []models.Playlist{
			{ID: "existing_hiphop", Name: "Hip-Hop", TrackCount: 1},
		}
		mock.PlaylistTracks = map[string][]string{
			"existing_hiphop": {"t1"},
		}
		mock.AddTracksFunc = func(ctx context.Context, playlistID string, trackIDs []string) error {
			return errors.New("quota exceeded")
		}
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		result, err := engine.Run(ctx, fastOpts(), nil)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		// t1 is already in the playlist, so only the other three buckets fail.
		if result.SkippedTracks != 1 {
			t.Errorf("expected 1 skipped track, got %d", result.SkippedTracks)
		}
		if result.FailedTracks != 3 {
			t.Errorf("expected 3 failed tracks, got %d", result.FailedTracks)
		}
		if result.AddedTracks != 0 {
			t.Errorf("expected 0 added tracks, got %d", result.AddedTracks)
		}
	})

	t.Run("token expiry surfaces through the run", func(t *testing.T) {
		mock := &tu.MockService{
			LikedTracksFunc: func(ctx context.Context, max int) ([]models.Track, error) {
				return nil, shared.ErrTokenExpired
			},
		}
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		_, err := engine.Run(ctx, fastOpts(), nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired to survive wrapping, got %v", err)
		}
	})

	t.Run("nil service", func(t *testing.T) {
		engine := NewLibraryEngine(nil, classifier.NewRuleClassifier())
		if _, err := engine.Run(ctx, fastOpts(), nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("nil classifier", func(t *testing.T) {
		engine := NewLibraryEngine(&tu.MockService{}, nil)
		if _, err := engine.Run(ctx, fastOpts(), nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("emits progress updates", func(t *testing.T) {
		mock := libraryFixture()
		engine := NewLibraryEngine(mock, classifier.NewRuleClassifier())

		progress := make(chan ProgressUpdate, 100)
		if _, err := engine.Run(ctx, fastOpts(), progress); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		close(progress)

		seen := map[Phase]bool{}
		for update := range progress {
			seen[update.Phase] = true
		}

		for _, phase := range []Phase{FetchLiked, FetchFeatures, ClassifyTracks, EnsurePlaylists, AddTracks, Done} {
			if !seen[phase] {
				t.Errorf("expected a %s update", phase)
			}
		}
	})
}

func TestPlaylistDescription(t *testing.T) {
	if got := PlaylistDescription("Rock"); got != "Auto-created playlist for Rock songs" {
		t.Errorf("unexpected description: %s", got)
	}
}
