// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles Spotify authentication operations.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check stored credentials and token validity",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// spotifyCommand handles Spotify library operations.
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify library operations",
		Commands: []*cli.Command{
			{
				Name:  "liked",
				Usage: "List liked songs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to return (0 for all)",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save API response locally",
					},
				},
				Action: r.SpotifyLiked,
			},
			{
				Name:  "playlists",
				Usage: "List Spotify playlists",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save API response locally",
					},
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:  "features",
				Usage: "Show audio features for a track",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Spotify track ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SpotifyFeatures,
			},
		},
	}
}

// sortCommand handles library sorting operations.
func sortCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sort",
		Usage: "Sort liked songs into genre playlists",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Fetch, classify, and distribute liked songs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of liked songs to process (0 for all)",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Classify and report without modifying playlists",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Create genre playlists as public",
					},
					&cli.FloatFlag{
						Name:  "rate-limit",
						Usage: "Spotify requests per second",
					},
				},
				Action: r.SortRun,
			},
			{
				Name:  "report",
				Usage: "Export the most recent sort run report",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Report format (csv, markdown, text)",
						Value: "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.SortReport,
			},
			{
				Name:  "export",
				Usage: "Export a cached genre playlist to CSV or text",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "genre",
						Usage:    "Genre playlist to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format (csv, text)",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (for csv, the base for _tracks.csv and _metadata.json)",
					},
				},
				Action: r.SortExport,
			},
			{
				Name:   "ui",
				Usage:  "Interactive TUI for library sorting",
				Flags:  tuiFlags(),
				Action: r.TUI,
			},
		},
	}
}

// deezerCommand handles Deezer preview lookups.
func deezerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "deezer",
		Usage: "Deezer operations",
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "Look up a 30-second preview URL for a song",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.DeezerPreview,
			},
		},
	}
}

// serveCommand runs the local web app.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local web app",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive sorting.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive"},
		Usage:   "Launch interactive TUI for library sorting",
		Flags:   tuiFlags(),
		Action:  r.TUI,
	}
}

func tuiFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of liked songs to process (0 for all)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Classify and report without modifying playlists",
		},
	}
}
