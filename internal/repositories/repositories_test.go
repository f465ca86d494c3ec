package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func trackFixture(serviceID string) *models.PersistedTrack {
	track := models.NewPersistedTrack(0, serviceID, models.Track{
		ID:       serviceID,
		Title:    "Test Song",
		Artist:   "Test Artist",
		Album:    "Test Album",
		Duration: 210,
		ISRC:     "USTEST2500001",
	})
	track.SetGenre("Rock")
	track.SetFeatures(models.AudioFeatures{
		ID:           serviceID,
		Energy:       0.7,
		Valence:      0.3,
		Danceability: 0.5,
	})
	return track
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	first, err := NextSequence(db, "tracks")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(db, "tracks")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}

	if first != 1 {
		t.Errorf("expected first sequence 1, got %d", first)
	}
	if second != first+1 {
		t.Errorf("expected sequence to increment, got %d then %d", first, second)
	}

	// Each table advances independently.
	playlistSeq, err := NextSequence(db, "playlists")
	if err != nil {
		t.Fatalf("failed to get playlist sequence: %v", err)
	}
	if playlistSeq != 1 {
		t.Errorf("expected playlist sequence 1, got %d", playlistSeq)
	}
}

func TestTrackRepository(t *testing.T) {
	t.Run("Create and Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		track := trackFixture("spotify_t1")
		if err := repo.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}
		if track.ID() == "" {
			t.Fatal("expected generated ID")
		}

		loaded, err := repo.Get(track.ID())
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if loaded.Title() != "Test Song" {
			t.Errorf("expected Test Song, got %s", loaded.Title())
		}
		if loaded.Genre() != "Rock" {
			t.Errorf("expected Rock, got %s", loaded.Genre())
		}
		if loaded.Features().Energy != 0.7 {
			t.Errorf("expected energy 0.7, got %f", loaded.Features().Energy)
		}
	})

	t.Run("GetByServiceID", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		if err := repo.Create(trackFixture("spotify_t1")); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		loaded, err := repo.GetByServiceID("spotify_t1")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if loaded.ServiceID() != "spotify_t1" {
			t.Errorf("expected spotify_t1, got %s", loaded.ServiceID())
		}
	})

	t.Run("GetByISRC", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		if err := repo.Create(trackFixture("spotify_t1")); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		loaded, err := repo.GetByISRC("USTEST2500001")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if loaded.ISRC() != "USTEST2500001" {
			t.Errorf("unexpected ISRC: %s", loaded.ISRC())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		track := trackFixture("spotify_t1")
		if err := repo.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		track.SetGenre("Indie")
		track.SetFeatures(models.AudioFeatures{ID: "spotify_t1", Energy: 0.4})

		if err := repo.Update(track); err != nil {
			t.Fatalf("failed to update track: %v", err)
		}

		loaded, err := repo.Get(track.ID())
		if err != nil {
			t.Fatalf("failed to reload track: %v", err)
		}
		if loaded.Genre() != "Indie" {
			t.Errorf("expected Indie, got %s", loaded.Genre())
		}
		if loaded.Features().Energy != 0.4 {
			t.Errorf("expected energy 0.4, got %f", loaded.Features().Energy)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		track := trackFixture("spotify_t1")
		if err := repo.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		if err := repo.Delete(track.ID()); err != nil {
			t.Fatalf("failed to delete track: %v", err)
		}

		if _, err := repo.Get(track.ID()); err == nil {
			t.Error("expected soft-deleted track to be hidden")
		}

		if err := repo.Delete(track.ID()); err == nil {
			t.Error("expected error deleting twice")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		rock := trackFixture("spotify_t1")
		if err := repo.Create(rock); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		indie := trackFixture("spotify_t2")
		indie.SetGenre("Indie")
		if err := repo.Create(indie); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list tracks: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(all))
		}

		rockOnly, err := repo.List(map[string]any{"genre": "Rock"})
		if err != nil {
			t.Fatalf("failed to list by genre: %v", err)
		}
		if len(rockOnly) != 1 || rockOnly[0].ServiceID() != "spotify_t1" {
			t.Errorf("unexpected genre filter result: %d tracks", len(rockOnly))
		}
	})

	t.Run("CountByGenre", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		for i, serviceID := range []string{"spotify_t1", "spotify_t2", "spotify_t3"} {
			track := trackFixture(serviceID)
			if i == 2 {
				track.SetGenre("Indie")
			}
			if err := repo.Create(track); err != nil {
				t.Fatalf("failed to create track: %v", err)
			}
		}

		counts, err := repo.CountByGenre()
		if err != nil {
			t.Fatalf("failed to count by genre: %v", err)
		}
		if counts["Rock"] != 2 {
			t.Errorf("expected 2 Rock tracks, got %d", counts["Rock"])
		}
		if counts["Indie"] != 1 {
			t.Errorf("expected 1 Indie track, got %d", counts["Indie"])
		}
	})

	t.Run("Get missing track", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTrackRepository(db)

		if _, err := repo.Get("missing"); err == nil {
			t.Error("expected error for missing track")
		}
	})
}

func playlistFixture(serviceID, name, genre string) *models.PersistedPlaylist {
	return models.NewPersistedPlaylist(0, serviceID, genre, models.Playlist{
		ID:          serviceID,
		Name:        name,
		Description: "Auto-created playlist for " + genre + " songs",
		TrackCount:  5,
	})
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("Create and Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)

		playlist := playlistFixture("spotify_p1", "Rock", "Rock")
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		loaded, err := repo.Get(playlist.ID())
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if loaded.Name() != "Rock" {
			t.Errorf("expected Rock, got %s", loaded.Name())
		}
		if loaded.TrackCount() != 5 {
			t.Errorf("expected 5 tracks, got %d", loaded.TrackCount())
		}
	})

	t.Run("GetByGenre", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)

		if err := repo.Create(playlistFixture("spotify_p1", "Rock", "Rock")); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if err := repo.Create(playlistFixture("spotify_p2", "Folk", "Folk")); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		loaded, err := repo.GetByGenre("Folk")
		if err != nil {
			t.Fatalf("failed to get playlist by genre: %v", err)
		}
		if loaded.ServiceID() != "spotify_p2" {
			t.Errorf("expected spotify_p2, got %s", loaded.ServiceID())
		}

		if _, err := repo.GetByGenre("Jazz"); err == nil {
			t.Error("expected error for unknown genre")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)

		playlist := playlistFixture("spotify_p1", "Rock", "Rock")
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		playlist.SetTrackCount(9)
		if err := repo.Update(playlist); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		loaded, err := repo.Get(playlist.ID())
		if err != nil {
			t.Fatalf("failed to reload playlist: %v", err)
		}
		if loaded.TrackCount() != 9 {
			t.Errorf("expected 9 tracks, got %d", loaded.TrackCount())
		}
	})

	t.Run("List by genre", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewPlaylistRepository(db)

		if err := repo.Create(playlistFixture("spotify_p1", "Rock", "Rock")); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if err := repo.Create(playlistFixture("spotify_p2", "Folk", "Folk")); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		rock, err := repo.List(map[string]any{"genre": "Rock"})
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(rock) != 1 {
			t.Errorf("expected 1 playlist, got %d", len(rock))
		}
	})
}

func TestSortRunRepository(t *testing.T) {
	newRun := func(total int, started time.Time) *models.SortRun {
		run := models.NewSortRun(0)
		run.SetTotals(total, total, 0, 0)
		run.SetGenreCounts(map[string]int{"Rock": total})
		run.SetStartedAt(started)
		run.Complete(models.SortRunCompleted)
		return run
	}

	t.Run("Create and Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSortRunRepository(db)

		run := newRun(10, time.Now())
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create sort run: %v", err)
		}

		loaded, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get sort run: %v", err)
		}
		if loaded.Status() != models.SortRunCompleted {
			t.Errorf("expected completed, got %s", loaded.Status())
		}
		if loaded.TotalTracks() != 10 {
			t.Errorf("expected 10 tracks, got %d", loaded.TotalTracks())
		}
		if loaded.GenreCounts()["Rock"] != 10 {
			t.Errorf("expected genre counts to round trip, got %v", loaded.GenreCounts())
		}
		if loaded.FinishedAt() == nil {
			t.Error("expected finished timestamp")
		}
	})

	t.Run("Latest", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSortRunRepository(db)

		older := newRun(5, time.Now().Add(-time.Hour))
		if err := repo.Create(older); err != nil {
			t.Fatalf("failed to create older run: %v", err)
		}

		newer := newRun(8, time.Now())
		if err := repo.Create(newer); err != nil {
			t.Fatalf("failed to create newer run: %v", err)
		}

		latest, err := repo.Latest()
		if err != nil {
			t.Fatalf("failed to get latest run: %v", err)
		}
		if latest.TotalTracks() != 8 {
			t.Errorf("expected the newer run, got %d tracks", latest.TotalTracks())
		}
	})

	t.Run("Latest with no runs", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSortRunRepository(db)

		if _, err := repo.Latest(); err == nil {
			t.Error("expected error with no runs recorded")
		}
	})

	t.Run("List by status", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSortRunRepository(db)

		completed := newRun(5, time.Now().Add(-time.Minute))
		if err := repo.Create(completed); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		failed := models.NewSortRun(0)
		failed.SetStartedAt(time.Now())
		failed.Complete(models.SortRunFailed)
		if err := repo.Create(failed); err != nil {
			t.Fatalf("failed to create failed run: %v", err)
		}

		runs, err := repo.List(map[string]any{"status": models.SortRunFailed})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 || runs[0].Status() != models.SortRunFailed {
			t.Errorf("unexpected status filter result: %d runs", len(runs))
		}
	})
}

func TestUserRepository(t *testing.T) {
	t.Run("Create and GetBySpotifyID", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)

		user := models.NewUser(0, "spotify_user", "Listener")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		loaded, err := repo.GetBySpotifyID("spotify_user")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if loaded.DisplayName() != "Listener" {
			t.Errorf("expected Listener, got %s", loaded.DisplayName())
		}
	})

	t.Run("Update display name", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)

		user := models.NewUser(0, "spotify_user", "Listener")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		user.SetDisplayName("Renamed")
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		loaded, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to reload user: %v", err)
		}
		if loaded.DisplayName() != "Renamed" {
			t.Errorf("expected Renamed, got %s", loaded.DisplayName())
		}
	})
}

func TestLibraryCache(t *testing.T) {
	setup := func(t *testing.T) (*LibraryCache, *TrackRepository, *PlaylistRepository, *SortRunRepository, *UserRepository) {
		t.Helper()
		db := setupTestDB(t)
		tracks := NewTrackRepository(db)
		playlists := NewPlaylistRepository(db)
		runs := NewSortRunRepository(db)
		users := NewUserRepository(db)
		return NewLibraryCache(tracks, playlists, runs, users), tracks, playlists, runs, users
	}

	t.Run("CacheTrack upserts by service ID", func(t *testing.T) {
		cache, tracks, _, _, _ := setup(t)

		dto := models.Track{ID: "spotify_t1", Title: "Song", Artist: "Artist"}

		if err := cache.CacheTrack(dto, "Rock", models.AudioFeatures{ID: "spotify_t1", Energy: 0.7}); err != nil {
			t.Fatalf("failed to cache track: %v", err)
		}

		// A second cache with a new classification updates the existing row.
		if err := cache.CacheTrack(dto, "Indie", models.AudioFeatures{ID: "spotify_t1", Energy: 0.5}); err != nil {
			t.Fatalf("failed to re-cache track: %v", err)
		}

		all, err := tracks.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list tracks: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 cached track, got %d", len(all))
		}
		if all[0].Genre() != "Indie" {
			t.Errorf("expected updated genre Indie, got %s", all[0].Genre())
		}
	})

	t.Run("CachePlaylist upserts by service ID", func(t *testing.T) {
		cache, _, playlists, _, _ := setup(t)

		dto := models.Playlist{ID: "spotify_p1", Name: "Rock", TrackCount: 3}

		if err := cache.CachePlaylist(dto, "Rock"); err != nil {
			t.Fatalf("failed to cache playlist: %v", err)
		}

		dto.TrackCount = 7
		if err := cache.CachePlaylist(dto, "Rock"); err != nil {
			t.Fatalf("failed to re-cache playlist: %v", err)
		}

		all, err := playlists.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 cached playlist, got %d", len(all))
		}
		if all[0].TrackCount() != 7 {
			t.Errorf("expected updated track count 7, got %d", all[0].TrackCount())
		}
	})

	t.Run("CacheUser upserts by Spotify ID", func(t *testing.T) {
		cache, _, _, _, users := setup(t)

		if err := cache.CacheUser("spotify_user", "Listener"); err != nil {
			t.Fatalf("failed to cache user: %v", err)
		}

		// A repeat cache with a new display name updates the existing row.
		if err := cache.CacheUser("spotify_user", "Renamed"); err != nil {
			t.Fatalf("failed to re-cache user: %v", err)
		}

		all, err := users.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 cached user, got %d", len(all))
		}
		if all[0].DisplayName() != "Renamed" {
			t.Errorf("expected updated display name Renamed, got %s", all[0].DisplayName())
		}

		// An empty display name never clobbers a stored one.
		if err := cache.CacheUser("spotify_user", ""); err != nil {
			t.Fatalf("failed to cache user with empty name: %v", err)
		}
		loaded, err := users.GetBySpotifyID("spotify_user")
		if err != nil {
			t.Fatalf("failed to reload user: %v", err)
		}
		if loaded.DisplayName() != "Renamed" {
			t.Errorf("expected display name to persist, got %s", loaded.DisplayName())
		}
	})

	t.Run("RecordRun", func(t *testing.T) {
		cache, _, _, runs, _ := setup(t)

		run := models.NewSortRun(0)
		run.SetTotals(3, 3, 0, 0)
		run.Complete(models.SortRunCompleted)

		if err := cache.RecordRun(run); err != nil {
			t.Fatalf("failed to record run: %v", err)
		}

		latest, err := runs.Latest()
		if err != nil {
			t.Fatalf("failed to get latest run: %v", err)
		}
		if latest.TotalTracks() != 3 {
			t.Errorf("expected 3 tracks, got %d", latest.TotalTracks())
		}
	})
}
