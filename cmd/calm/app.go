package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"calm/internal/config"
	"calm/internal/observ"
	"calm/internal/progress"
	"calm/internal/project"
	"calm/internal/workspace"
)

// app is the state every project command needs.
type app struct {
	ws       *workspace.Context
	settings config.Settings
	colorOut bool
	colorErr bool
	useUI    bool
	timer    *observ.Timer
}

// loadApp resolves global flags against settings.toml and opens the project
// around the working directory.
func loadApp(cmd *cobra.Command) (*app, error) {
	home, err := config.Home()
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadSettings(home)
	if err != nil {
		return nil, err
	}

	colorFlag := flagOrSetting(cmd, "color", settings.Color)
	colorOut, err := readColorMode(colorFlag, os.Stdout)
	if err != nil {
		return nil, err
	}
	colorErr, err := readColorMode(colorFlag, os.Stderr)
	if err != nil {
		return nil, err
	}
	mode, err := readUIMode(flagOrSetting(cmd, "ui", settings.UI))
	if err != nil {
		return nil, err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	ws, err := workspace.Open(cwd,
		config.Options{Home: home, CacheDir: settings.CacheDir},
		workspace.Options{Timer: timer})
	if err != nil {
		return nil, err
	}
	return &app{
		ws:       ws,
		settings: settings,
		colorOut: colorOut,
		colorErr: colorErr,
		useUI:    shouldUseTUI(mode),
		timer:    timer,
	}, nil
}

// flagOrSetting prefers an explicit flag, then the user setting, then the
// flag default.
func flagOrSetting(cmd *cobra.Command, name, setting string) string {
	f := cmd.Root().PersistentFlags().Lookup(name)
	if f == nil {
		return setting
	}
	if !f.Changed && setting != "" {
		return setting
	}
	return f.Value.String()
}

// run executes fn with progress going to the live display or to `> step`
// lines on stderr.
func (a *app) run(ctx context.Context, title string, fn func(ws *workspace.Context) error) error {
	var err error
	if a.useUI {
		err = runWithUI(ctx, title, a.ws, fn)
	} else {
		err = fn(a.ws.WithSink(progress.NewLogSink(os.Stderr, a.colorErr)))
	}
	a.printTimings(os.Stderr)
	return err
}

func (a *app) printTimings(w io.Writer) {
	if a.timer == nil {
		return
	}
	fmt.Fprint(w, a.timer.Summary())
}

// selectFiles turns the file arguments of lint and format into a selection.
// explicit is false when tools should decide what to look at.
func selectFiles(ctx context.Context, base string, args []string, all, changed bool) (files []string, explicit bool, err error) {
	switch {
	case all:
		return nil, false, nil
	case changed:
		paths, err := project.ChangedFiles(ctx, base)
		if err != nil {
			return nil, false, err
		}
		// удалённые файлы из диффа пропускаем
		for _, p := range paths {
			fi, err := os.Stat(p)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, false, fmt.Errorf("failed to stat %s: %w", p, err)
			}
			if fi.Mode().IsRegular() {
				files = append(files, p)
			}
		}
		return files, true, nil
	case len(args) > 0:
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, false, fmt.Errorf("failed to resolve %s: %w", arg, err)
			}
			files = append(files, abs)
		}
		return files, true, nil
	}
	return nil, false, nil
}
