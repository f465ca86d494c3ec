package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/genrify/internal/shared"
	"github.com/urfave/cli/v3"
)

// DeezerPreview looks up a 30-second preview URL for a song.
func (r *Runner) DeezerPreview(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	if r.deezer == nil {
		return fmt.Errorf("%w: Deezer service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Infof("searching deezer for %q", query)

	previewURL, err := r.deezer.PreviewURL(ctx, query, "")
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{"query": query, "preview_url": previewURL}, true)
	}

	r.writePlain("Preview for %q:\n%s\n", query, previewURL)

	return nil
}
