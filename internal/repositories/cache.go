package repositories

import (
	"fmt"
	"strings"

	"github.com/desertthunder/genrify/internal/models"
)

// LibraryCache persists sort outcomes across the track, playlist, and sort run
// repositories.
//
// Tracks and playlists are upserted by their Spotify IDs so repeat sorts refresh
// the cache instead of duplicating rows. Duplicate inserts from concurrent runs
// are silently ignored (UNIQUE constraint violations).
type LibraryCache struct {
	tracks    *TrackRepository
	playlists *PlaylistRepository
	runs      *SortRunRepository
	users     *UserRepository
}

// NewLibraryCache creates a LibraryCache over the given repositories.
func NewLibraryCache(tracks *TrackRepository, playlists *PlaylistRepository, runs *SortRunRepository, users *UserRepository) *LibraryCache {
	return &LibraryCache{tracks: tracks, playlists: playlists, runs: runs, users: users}
}

// CacheUser upserts the authenticated account by its Spotify user ID.
func (c *LibraryCache) CacheUser(spotifyID, displayName string) error {
	existing, err := c.users.GetBySpotifyID(spotifyID)
	if err == nil && existing != nil {
		if displayName == "" || displayName == existing.DisplayName() {
			return nil
		}
		existing.SetDisplayName(displayName)
		return c.users.Update(existing)
	}

	user := models.NewUser(0, spotifyID, displayName)
	if err := c.users.Create(user); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache user: %w", err)
	}

	return nil
}

// CacheTrack upserts a classified track by its Spotify track ID.
func (c *LibraryCache) CacheTrack(track models.Track, genre string, features models.AudioFeatures) error {
	existing, err := c.tracks.GetByServiceID(track.ID)
	if err == nil && existing != nil {
		existing.SetGenre(genre)
		existing.SetFeatures(features)
		return c.tracks.Update(existing)
	}

	persisted := models.NewPersistedTrack(0, track.ID, track)
	persisted.SetGenre(genre)
	persisted.SetFeatures(features)

	if err := c.tracks.Create(persisted); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache track: %w", err)
	}

	return nil
}

// CachePlaylist upserts a genre playlist by its Spotify playlist ID.
func (c *LibraryCache) CachePlaylist(playlist models.Playlist, genre string) error {
	existing, err := c.playlists.GetByServiceID(playlist.ID)
	if err == nil && existing != nil {
		existing.SetTrackCount(playlist.TrackCount)
		return c.playlists.Update(existing)
	}

	persisted := models.NewPersistedPlaylist(0, playlist.ID, genre, playlist)

	if err := c.playlists.Create(persisted); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache playlist: %w", err)
	}

	return nil
}

// RecordRun inserts a completed sort run.
func (c *LibraryCache) RecordRun(run *models.SortRun) error {
	if err := c.runs.Create(run); err != nil {
		return fmt.Errorf("failed to record sort run: %w", err)
	}
	return nil
}
