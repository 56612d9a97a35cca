package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/soundcheck/internal/shared"
	"github.com/desertthunder/soundcheck/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive profile view.
//
// Pressing l on the landing view exits the program and runs the browser login, after which the view starts again.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.sessionManager(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	// Redirect logs to file to avoid interfering with TUI rendering
	consoleLogger := r.logger
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(consoleLogger.GetLevel())

	for {
		r.SetLogger(fileLogger)
		model := ui.NewModel(ctx, sess, r.guard, r.aggregator(sess), r.detailFetcher(sess))
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		stop := ui.WatchSession(sess, p.Send)
		_, err := p.Run()
		stop()
		r.SetLogger(consoleLogger)
		if err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}

		if !model.LoginRequested() {
			return nil
		}
		if err := r.login(ctx, sess); err != nil {
			return err
		}
	}
}
