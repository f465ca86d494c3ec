// package services defines interface Service for interacting with HTTP APIs
//
// Spotify (OAuth2), Deezer (anonymous preview search)
package services

import (
	"context"

	"github.com/desertthunder/genrify/internal/models"
	"golang.org/x/oauth2"
)

// Service defines the interface for a music streaming provider that exposes a
// saved-tracks library and writable playlists.
type Service interface {
	// Authenticate performs OAuth or token authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// CurrentUserID returns the authenticated user's account ID.
	CurrentUserID(ctx context.Context) (string, error)

	// LikedTracks retrieves the user's saved tracks, paging through the
	// library. A max of 0 or less fetches the entire library.
	LikedTracks(ctx context.Context, max int) ([]models.Track, error)

	// AudioFeatures retrieves audio analysis features for the given track IDs.
	// Results are returned in request order; tracks with no features are omitted.
	AudioFeatures(ctx context.Context, trackIDs []string) ([]models.AudioFeatures, error)

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTrackIDs retrieves the service track IDs contained in a playlist.
	PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error)

	// CreatePlaylist creates a new playlist owned by the authenticated user.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error)

	// AddTracks appends tracks to a playlist.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService is implemented by services that authenticate through the
// OAuth2 authorization-code flow with a local callback server.
type OAuthService interface {
	Service

	// GetAuthURL returns the authorization URL for user login.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the underlying OAuth2 configuration.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate authenticates with a previously issued token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// PreviewService is implemented by services that can resolve a short audio
// preview URL for a track.
type PreviewService interface {
	// PreviewURL returns a streamable preview clip URL for the best match of
	// title and artist, or an error if no preview exists.
	PreviewURL(ctx context.Context, title, artist string) (string, error)
}
