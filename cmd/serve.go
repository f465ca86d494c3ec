package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/genrify/internal/services"
	"github.com/desertthunder/genrify/internal/shared"
	"github.com/desertthunder/genrify/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the local web app until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		var err error
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warnf("failed to load config, using defaults %v", err)
			config = shared.DefaultConfig()
		}
	}

	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = port
	}

	var oauthService services.OAuthService
	if svc, ok := r.spotify.(services.OAuthService); ok {
		oauthService = svc
	}

	app, err := web.NewApp(web.AppOpts{
		Config:     config,
		ConfigPath: configPath,
		Spotify:    oauthService,
		Engine:     r.engine,
		Logger:     r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create web app: %w", err)
	}

	serveCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("Smart playlist sorter running at http://%s\n", config.Server.Addr())
	r.writePlain("Press Ctrl+C to stop\n")

	return app.Serve(serveCtx)
}
