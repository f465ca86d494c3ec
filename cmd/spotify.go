package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/genrify/internal/server"
	"github.com/desertthunder/genrify/internal/services"
	"github.com/desertthunder/genrify/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// ensureSpotifyAuth applies the token persisted by 'auth login' to the
// Spotify service before a command's first API call.
//
// Expired tokens with a refresh token are still applied; the OAuth2 client
// refreshes them on first use.
func (r *Runner) ensureSpotifyAuth(ctx context.Context) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	spotify := r.config.Credentials.Spotify
	token := spotify.Token()
	if token == nil {
		return fmt.Errorf("%w: no stored token, run 'genrify auth login'", shared.ErrNotAuthenticated)
	}

	if !token.Valid() && token.RefreshToken == "" {
		return fmt.Errorf("%w: stored token expired without a refresh token", shared.ErrTokenExpired)
	}

	if oauthSrv, ok := r.spotify.(services.OAuthService); ok {
		return oauthSrv.OAuthenticate(ctx, token)
	}

	return r.spotify.Authenticate(ctx, spotify.Map())
}

// connectSpotify authenticates the Spotify service with stored tokens,
// falling back to a full reauthorization when they have expired.
func (r *Runner) connectSpotify(ctx context.Context, cmd *cli.Command) error {
	err := r.ensureSpotifyAuth(ctx)
	if err == nil {
		return nil
	}

	reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd)
	if !reauthed {
		return err
	}
	return authErr
}

// SpotifyReauth performs the full OAuth2 flow to get new tokens
func (r *Runner) SpotifyReauth(ctx context.Context, configPath string, config *shared.Config, srv services.OAuthService) (*shared.Config, error) {
	token, err := r.doOAuth(config, srv, "reauthorization")
	if err != nil {
		return nil, err
	}

	if err := config.Credentials.Spotify.Update(token); err != nil {
		return nil, fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Reauthorization successful")
	r.writePlain("✓ New tokens saved to %s\n", configPath)

	return config, nil
}

// SpotifyLiked lists the user's liked songs with optional limit.
func (r *Runner) SpotifyLiked(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	save := cmd.Bool("save")

	if err := r.connectSpotify(ctx, cmd); err != nil {
		return err
	}

	r.logger.Infof("listing liked songs with limit %v", limit)

	tracks, err := r.spotify.LikedTracks(ctx, limit)
	if err != nil {
		if reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd); reauthed {
			if authErr != nil {
				return authErr
			}
			if tracks, err = r.spotify.LikedTracks(ctx, limit); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		} else {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	if save {
		saveFile := "spotify_liked.json"
		data, err := shared.MarshalJSON(tracks, true)
		if err != nil {
			return fmt.Errorf("failed to marshal tracks: %w", err)
		}
		if err := os.WriteFile(saveFile, data, 0644); err != nil {
			r.logger.Warn("failed to save tracks", "error", err)
		} else {
			r.logger.Info("tracks saved", "file", saveFile)
		}
	}

	if useJSON {
		return r.writeJSON(tracks, pretty)
	}

	r.writePlain("Found %d liked songs:\n\n", len(tracks))
	for i, track := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, track.Artist, track.Title)
		if track.Album != "" {
			r.writePlain("   Album: %s\n", track.Album)
		}
		r.writePlain("   Duration: %s\n", shared.FormatDuration(track.Duration))
	}

	return nil
}

// SpotifyPlaylists lists Spotify playlists with optional limit.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	save := cmd.Bool("save")

	if err := r.connectSpotify(ctx, cmd); err != nil {
		return err
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	playlists, err := r.spotify.GetPlaylists(ctx)
	if err != nil {
		if reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd); reauthed {
			if authErr != nil {
				return authErr
			}
			if playlists, err = r.spotify.GetPlaylists(ctx); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		} else {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if save {
		saveFile := "spotify_playlists.json"
		data, err := shared.MarshalJSON(playlists, true)
		if err != nil {
			return fmt.Errorf("failed to marshal playlists: %w", err)
		}
		if err := os.WriteFile(saveFile, data, 0644); err != nil {
			r.logger.Warn("failed to save playlists", "error", err)
		} else {
			r.logger.Info("playlists saved", "file", saveFile)
		}
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		r.writePlain("   Visibility: %s\n", shared.VisibilityString(p.Public))
		r.writePlain("\n")
	}

	return nil
}

// SpotifyFeatures shows the audio features used for classification for one track.
func (r *Runner) SpotifyFeatures(ctx context.Context, cmd *cli.Command) error {
	trackID := cmd.String("id")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if err := r.connectSpotify(ctx, cmd); err != nil {
		return err
	}

	features, err := r.spotify.AudioFeatures(ctx, []string{trackID})
	if err != nil {
		if reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd); reauthed {
			if authErr != nil {
				return authErr
			}
			if features, err = r.spotify.AudioFeatures(ctx, []string{trackID}); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		} else {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	if len(features) == 0 {
		return fmt.Errorf("%w: track %s", shared.ErrNoAudioFeatures, trackID)
	}

	f := features[0]

	if useJSON {
		return r.writeJSON(f, pretty)
	}

	r.writePlain("Audio features for %s:\n\n", trackID)
	r.writePlain("  Danceability: %.3f\n", f.Danceability)
	r.writePlain("  Energy: %.3f\n", f.Energy)
	r.writePlain("  Valence: %.3f\n", f.Valence)
	r.writePlain("  Speechiness: %.3f\n", f.Speechiness)
	r.writePlain("  Acousticness: %.3f\n", f.Acousticness)
	r.writePlain("  Instrumentalness: %.3f\n", f.Instrumentalness)
	r.writePlain("  Liveness: %.3f\n", f.Liveness)
	r.writePlain("  Loudness: %.1f dB\n", f.Loudness)
	r.writePlain("  Tempo: %.1f BPM\n", f.Tempo)

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := config.Server.Addr()
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// handleSpotifyAuthError checks if an error is a token expiration error and triggers reauthorization if needed.
func (r *Runner) handleSpotifyAuthError(ctx context.Context, err error, cmd *cli.Command) (bool, error) {
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, shared.ErrTokenExpired) {
		return false, err
	}

	r.writePlainln("⚠ Authentication token expired. Starting reauthorization...\n")

	configPath := cmd.String("config")
	if configPath == "" {
		configPath = "config.toml"
	}

	config := r.config
	if config == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			var loadErr error
			if config, loadErr = shared.LoadConfig(configPath); loadErr != nil {
				return true, fmt.Errorf("failed to load config: %w", loadErr)
			}
		} else {
			return true, fmt.Errorf("config file not found: %w", statErr)
		}
	}

	spotifyService, ok := r.spotify.(services.OAuthService)
	if !ok {
		return true, fmt.Errorf("spotify service does not support reauthorization")
	}

	updatedConfig, reauthErr := r.SpotifyReauth(ctx, configPath, config, spotifyService)
	if reauthErr != nil {
		return true, fmt.Errorf("reauthorization failed: %w", reauthErr)
	}

	if authErr := spotifyService.OAuthenticate(ctx, updatedConfig.Credentials.Spotify.Token()); authErr != nil {
		return true, fmt.Errorf("failed to authenticate with new tokens: %w", authErr)
	}

	r.config = updatedConfig
	r.writePlainln("✓ Successfully reauthenticated. Retrying operation...\n")

	return true, nil
}
