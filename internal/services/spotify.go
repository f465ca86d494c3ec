// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// DefaultRedirectURI is used when the config carries no redirect URI.
// The port matches the local web app (see [shared.ServerConfig]).
const DefaultRedirectURI = "http://127.0.0.1:5000/callback"

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	Explicit    bool            `json:"explicit"`
	ExternalIDs externalIDs     `json:"external_ids"`
	Popularity  int             `json:"popularity"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	Images      []SpotifyImage      `json:"images"`
	URI         string              `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifySimplePlaylist `json:"items"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
	Next     *string                 `json:"next"`
	Previous *string                 `json:"previous"`
}

// SpotifyPlaylistItem represents a track within a playlist context.
type SpotifyPlaylistItem struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistItems represents a paginated response of playlist tracks.
type SpotifyPaginatedPlaylistItems struct {
	Items  []SpotifyPlaylistItem `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
	Next   *string               `json:"next"`
}

// SpotifyAudioFeatures mirrors the audio-features object for a single track.
type SpotifyAudioFeatures struct {
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

// SpotifyService implements the [Service] interface for Spotify API interactions.
// Uses [oauth2] for authentication and provides methods for library and playlist operations.
type SpotifyService struct {
	config      *oauth2.Config
	token       *oauth2.Token
	httpClient  *http.Client
	credentials map[string]string
	userID      string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-library-read",
			"playlist-read-private",
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		httpClient:  http.DefaultClient,
		credentials: credentials,
	}, nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		token := &oauth2.Token{AccessToken: accessToken}
		if refresh, ok := credentials["refresh_token"]; ok && refresh != "" {
			token.RefreshToken = refresh
		}
		return s.OAuthenticate(ctx, token)
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("failed to exchange auth code: %w", err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("missing access_token or auth_code in credentials")
}

// OAuthenticate authenticates with a previously issued OAuth token.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidCredentials)
	}
	s.token = token
	s.httpClient = s.config.Client(ctx, s.token)
	s.userID = ""
	return nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the underlying OAuth2 configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// A non-nil body is JSON encoded. A 401 response maps to [shared.ErrTokenExpired]
// so callers can trigger reauthorization.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := spotifyBaseURL + endpoint

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: spotify API returned 401", shared.ErrTokenExpired)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("spotify API error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SavedTracks retrieves the user's saved tracks with pagination.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// AudioFeaturesBatch retrieves audio features for up to 100 tracks.
func (s *SpotifyService) AudioFeaturesBatch(ctx context.Context, trackIDs []string) ([]SpotifyAudioFeatures, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("no track IDs provided")
	}
	if len(trackIDs) > 100 {
		return nil, fmt.Errorf("maximum 100 track IDs allowed")
	}

	ids := strings.Join(trackIDs, ",")
	endpoint := fmt.Sprintf("/audio-features?ids=%s", url.QueryEscape(ids))

	var response struct {
		AudioFeatures []*SpotifyAudioFeatures `json:"audio_features"`
	}

	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	// The API returns null entries for tracks with no analysis.
	features := make([]SpotifyAudioFeatures, 0, len(response.AudioFeatures))
	for _, f := range response.AudioFeatures {
		if f != nil {
			features = append(features, *f)
		}
	}

	return features, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// PlaylistItems retrieves one page of a playlist's tracks.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistItems, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)

	var response SpotifyPaginatedPlaylistItems
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// Service interface implementation

// CurrentUserID returns the authenticated user's Spotify ID, caching it after the first lookup.
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	if s.userID != "" {
		return s.userID, nil
	}

	user, err := s.UserProfile(ctx)
	if err != nil {
		return "", err
	}

	s.userID = user.ID
	return s.userID, nil
}

// LikedTracks pages through the user's saved tracks. A max of 0 or less
// fetches the entire library.
func (s *SpotifyService) LikedTracks(ctx context.Context, max int) ([]models.Track, error) {
	var tracks []models.Track
	limit := 50
	offset := 0

	for {
		page, err := s.SavedTracks(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			tracks = append(tracks, convertTrack(item.Track))
			if max > 0 && len(tracks) >= max {
				return tracks[:max], nil
			}
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += limit
	}

	return tracks, nil
}

// AudioFeatures retrieves features for the given track IDs, batching requests
// at the API's limit of 100 IDs.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackIDs []string) ([]models.AudioFeatures, error) {
	var features []models.AudioFeatures

	for start := 0; start < len(trackIDs); start += 100 {
		end := min(start+100, len(trackIDs))

		batch, err := s.AudioFeaturesBatch(ctx, trackIDs[start:end])
		if err != nil {
			return nil, err
		}

		for _, f := range batch {
			features = append(features, models.AudioFeatures{
				ID:               f.ID,
				Danceability:     f.Danceability,
				Energy:           f.Energy,
				Key:              f.Key,
				Loudness:         f.Loudness,
				Mode:             f.Mode,
				Speechiness:      f.Speechiness,
				Acousticness:     f.Acousticness,
				Instrumentalness: f.Instrumentalness,
				Liveness:         f.Liveness,
				Valence:          f.Valence,
				Tempo:            f.Tempo,
				DurationMS:       f.DurationMS,
				TimeSignature:    f.TimeSignature,
			})
		}
	}

	return features, nil
}

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var allPlaylists []models.Playlist
	limit := 50
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			allPlaylists = append(allPlaylists, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  sp.Tracks.Total,
				Public:      sp.Public,
			})
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += limit
	}

	return allPlaylists, nil
}

// PlaylistTrackIDs retrieves every track ID contained in a playlist.
func (s *SpotifyService) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	limit := 100
	offset := 0

	for {
		page, err := s.PlaylistItems(ctx, playlistID, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track.ID != "" {
				ids = append(ids, item.Track.ID)
			}
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += limit
	}

	return ids, nil
}

// CreatePlaylist creates a new playlist owned by the authenticated user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error) {
	userID, err := s.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))

	var created SpotifySimplePlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          created.ID,
		Name:        created.Name,
		Description: created.Description,
		TrackCount:  created.Tracks.Total,
		Public:      created.Public,
	}, nil
}

// AddTracks appends tracks to a playlist, batching at the API's limit of 100 URIs.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)

	for start := 0; start < len(trackIDs); start += 100 {
		end := min(start+100, len(trackIDs))

		uris := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			uris = append(uris, "spotify:track:"+id)
		}

		body := map[string]any{"uris": uris}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return err
		}
	}

	return nil
}

// convertTrack maps a Spotify track to the neutral DTO. All artist names are
// joined, matching how the library listing displays credits.
func convertTrack(st SpotifyTrack) models.Track {
	names := make([]string, 0, len(st.Artists))
	for _, artist := range st.Artists {
		names = append(names, artist.Name)
	}

	return models.Track{
		ID:       st.ID,
		Title:    st.Name,
		Artist:   strings.Join(names, ", "),
		Album:    st.Album.Name,
		Duration: st.DurationMS / 1000,
		ISRC:     st.ExternalIDs.ISRC,
	}
}
