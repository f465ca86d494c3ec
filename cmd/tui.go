package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/genrify/internal/shared"
	"github.com/desertthunder/genrify/internal/tasks"
	"github.com/desertthunder/genrify/internal/ui"
	"github.com/urfave/cli/v3"
)

// SetLogger swaps the Runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// TUI launches the interactive terminal UI for library sorting.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.connectSpotify(ctx, cmd); err != nil {
		return err
	}
	if r.engine == nil {
		return fmt.Errorf("%w: sort engine not initialized", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/genrify-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	opts := tasks.SortOptions{
		Limit:  cmd.Int("limit"),
		DryRun: cmd.Bool("dry-run"),
	}

	model := ui.NewModel(ctx, r.spotify, r.engine, opts)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
