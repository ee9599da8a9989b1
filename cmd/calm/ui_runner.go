package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"calm/internal/progress"
	"calm/internal/ui"
	"calm/internal/workspace"
)

// runWithUI runs fn on a worker goroutine and renders its progress events
// until the worker closes the channel.
func runWithUI(ctx context.Context, title string, ws *workspace.Context, fn func(*workspace.Context) error) error {
	events := make(chan progress.Event, 256)
	errCh := make(chan error, 1)

	go func() {
		err := fn(ws.WithSink(progress.ChannelSink{Ch: events}))
		close(events)
		errCh <- err
	}()

	model := ui.NewProgressModel(title, ws.ToolIDs(), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	_, uiErr := program.Run()

	// the display may quit early on ctrl+c; keep the worker from blocking
	go func() {
		for range events {
		}
	}()
	err := <-errCh
	if err == nil && uiErr != nil {
		return uiErr
	}
	return err
}
