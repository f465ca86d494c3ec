package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/desertthunder/genrify/internal/classifier"
	"github.com/desertthunder/genrify/internal/services"
	"github.com/desertthunder/genrify/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var spotifyService services.Service
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			spotifyService = svc
		}
	}

	deezerService := services.NewDeezerService("", nil)

	var genreClassifier classifier.Classifier
	if config.Classifier.Mode == "remote" {
		genreClassifier = classifier.NewRemoteClassifier(config.Classifier.ModelURL, nil)
	} else {
		genreClassifier = classifier.NewRuleClassifier()
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Spotify:    spotifyService,
		Deezer:     deezerService,
		Classifier: genreClassifier,
		HTTPClient: http.DefaultClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "genrify",
		Usage:    "Sort Spotify liked songs into genre playlists",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
