package models

import "fmt"

// PersistedPlaylist is the cached database representation of a genre playlist
// on the streaming service.
type PersistedPlaylist struct {
	base
	serviceID string
	genre     string
	playlist  Playlist
}

// NewPersistedPlaylist creates a persisted playlist mapping a genre to a
// service playlist.
func NewPersistedPlaylist(sequence int, serviceID, genre string, dto Playlist) *PersistedPlaylist {
	return &PersistedPlaylist{
		base:      newBase(sequence),
		serviceID: serviceID,
		genre:     genre,
		playlist:  dto,
	}
}

func (p *PersistedPlaylist) ServiceID() string   { return p.serviceID }
func (p *PersistedPlaylist) Genre() string       { return p.genre }
func (p *PersistedPlaylist) Name() string        { return p.playlist.Name }
func (p *PersistedPlaylist) Description() string { return p.playlist.Description }
func (p *PersistedPlaylist) Public() bool        { return p.playlist.Public }
func (p *PersistedPlaylist) TrackCount() int     { return p.playlist.TrackCount }
func (p *PersistedPlaylist) Playlist() Playlist  { return p.playlist }

func (p *PersistedPlaylist) SetTrackCount(n int) { p.playlist.TrackCount = n }

// Validate checks that required playlist fields are present.
func (p *PersistedPlaylist) Validate() error {
	if p.serviceID == "" {
		return fmt.Errorf("playlist service ID is required")
	}
	if p.playlist.Name == "" {
		return fmt.Errorf("playlist name is required")
	}
	return nil
}
