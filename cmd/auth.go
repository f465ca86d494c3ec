package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/genrify/internal/services"
	"github.com/desertthunder/genrify/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin performs the OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		var err error
		if _, statErr := os.Stat(configPath); statErr == nil {
			config, err = shared.LoadConfig(configPath)
			if err != nil {
				r.logger.Warnf("failed to load config, using defaults %v", err)
				config = shared.DefaultConfig()
			}
		} else {
			config = shared.DefaultConfig()
		}
	}

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrInvalidArgument)
	}

	spotifyService, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(config, spotifyService, "authorization")
	if err != nil {
		return err
	}

	if err := config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: genrify sort run\n")

	return nil
}

// AuthStatus reports whether stored Spotify credentials and tokens are usable.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		var err error
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrMissingConfig, err)
		}
	}

	spotify := config.Credentials.Spotify

	r.writePlainHeader("Authentication Status")

	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		r.writePlain("Credentials: not configured\n")
		r.writePlain("Set client_id and client_secret in %s or via SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET\n", configPath)
		return nil
	}

	r.writePlain("Credentials: configured (client %s...)\n", truncateID(spotify.ClientID))

	token := spotify.Token()
	if token == nil {
		r.writePlain("Token: none (run 'genrify auth login')\n")
		return nil
	}

	if token.Expiry.IsZero() || token.Expiry.After(time.Now()) {
		r.writePlain("Token: valid")
		if !token.Expiry.IsZero() {
			r.writePlain(" (expires %s)", token.Expiry.Format(time.RFC3339))
		}
		r.writePlain("\n")
	} else {
		r.writePlain("Token: expired at %s", token.Expiry.Format(time.RFC3339))
		if spotify.RefreshToken != "" {
			r.writePlain(" (refresh token available, commands will reauthorize on demand)")
		}
		r.writePlain("\n")
	}

	return nil
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
