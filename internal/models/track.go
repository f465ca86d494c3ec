package models

import "fmt"

// Track represents a music track from the streaming service.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration"` // Duration in seconds
	ISRC     string `json:"isrc,omitempty"`
}

// Playlist represents a playlist on the streaming service.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
}

// PlaylistExport represents a playlist with all its tracks.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// AudioFeatures holds the per-track audio analysis values used for genre
// classification. Field names follow the streaming service's audio-features
// object.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	DurationMS       int     `json:"duration_ms"`
	TimeSignature    int     `json:"time_signature"`
}

// PersistedTrack is the cached database representation of a Track plus its
// classification result and audio features.
type PersistedTrack struct {
	base
	serviceID string
	track     Track
	genre     string
	features  AudioFeatures
}

// NewPersistedTrack creates a persisted track for the given service track ID and DTO.
func NewPersistedTrack(sequence int, serviceID string, dto Track) *PersistedTrack {
	return &PersistedTrack{
		base:      newBase(sequence),
		serviceID: serviceID,
		track:     dto,
	}
}

func (t *PersistedTrack) ServiceID() string        { return t.serviceID }
func (t *PersistedTrack) Title() string            { return t.track.Title }
func (t *PersistedTrack) Artist() string           { return t.track.Artist }
func (t *PersistedTrack) Album() string            { return t.track.Album }
func (t *PersistedTrack) Duration() int            { return t.track.Duration }
func (t *PersistedTrack) ISRC() string             { return t.track.ISRC }
func (t *PersistedTrack) Genre() string            { return t.genre }
func (t *PersistedTrack) Features() AudioFeatures  { return t.features }
func (t *PersistedTrack) Track() Track             { return t.track }
func (t *PersistedTrack) SetGenre(genre string)    { t.genre = genre }
func (t *PersistedTrack) SetFeatures(f AudioFeatures) {
	t.features = f
}

// Validate checks that required track fields are present.
func (t *PersistedTrack) Validate() error {
	if t.serviceID == "" {
		return fmt.Errorf("track service ID is required")
	}
	if t.track.Title == "" {
		return fmt.Errorf("track title is required")
	}
	return nil
}
