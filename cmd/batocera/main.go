//go:build linux

/*
Retro Addons
Copyright (C) 2026 The Retro Addons Project Contributors

This file is part of Retro Addons.

Retro Addons is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Retro Addons is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Retro Addons.  If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/RetroAddonsProject/retro-addons/pkg/catalog"
	"github.com/RetroAddonsProject/retro-addons/pkg/config"
	"github.com/RetroAddonsProject/retro-addons/pkg/frontend"
	"github.com/RetroAddonsProject/retro-addons/pkg/helpers"
	"github.com/RetroAddonsProject/retro-addons/pkg/helpers/command"
	"github.com/RetroAddonsProject/retro-addons/pkg/history"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/batch"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/handshake"
	"github.com/RetroAddonsProject/retro-addons/pkg/installer/wrap"
	"github.com/RetroAddonsProject/retro-addons/pkg/ui/tui"
	"github.com/jonboulle/clockwork"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	showVersion := flag.Bool("version", false, "print version and exit")
	debug := flag.Bool("debug", false, "enable debug logging to stderr")
	listApps := flag.Bool("list", false, "list catalog entries and exit")
	installName := flag.String("install", "", "install a catalog entry by name, skipping the picker")
	uninstallName := flag.String("uninstall", "", "uninstall a catalog entry by name")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", config.AppName, config.AppVersion)
		return nil
	}

	fs := afero.NewOsFs()
	dataDir := config.DataDir()

	var logWriters []io.Writer
	if *debug {
		logWriters = append(logWriters, os.Stderr)
	}
	if err := helpers.InitLogging(dataDir, logWriters); err != nil {
		return fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(fs, dataDir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	helpers.SetDebugLogging(*debug || cfg.DebugLogging())

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	hist := history.NewStore(fs, clockwork.NewRealClock(),
		filepath.Join(dataDir, config.HistoryFile))
	cat, err := catalog.Load(fs, filepath.Join(dataDir, config.CatalogFile))
	if err != nil {
		return fmt.Errorf("error loading catalog: %w", err)
	}

	if *listApps {
		printCatalog(cat, hist)
		return nil
	}

	tui.SetTheme(&tview.Styles)

	jobs, err := buildJobs(cat, hist, *installName, *uninstallName)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	opts := wrap.DefaultOptions()
	opts.TempDir = cfg.TempDir()
	opts.ReloadURL = cfg.FrontendAPIURL() + "/reloadgames"
	opts.WrapDialogs = cfg.DialogWrapEnabled()

	responder := handshake.NewResponder(fs)
	b := batch.New(jobs, responder, hist,
		batch.DefaultStart(opts, cfg.MaxLogLines()))

	screen := tui.NewInstallScreen(tview.NewApplication())
	if err := screen.Run(b); err != nil {
		log.Error().Err(err).Msg("error running UI")
		return fmt.Errorf("error running UI: %w", err)
	}

	// replay any deferred frontend kill, or refresh the game lists
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	finisher := frontend.NewFinisher(
		responder,
		frontend.NewClient(cfg.FrontendAPIURL()),
		&command.RealExecutor{},
		cfg.TempDir(),
		opts.DeferProcess,
	)
	finisher.Finish(ctx)

	return nil
}

// buildJobs resolves the command line selection, falling back to the
// interactive picker when none was given.
func buildJobs(
	cat *catalog.Catalog,
	hist *history.Store,
	installName, uninstallName string,
) ([]batch.Job, error) {
	switch {
	case installName != "":
		app, ok := cat.Lookup(installName)
		if !ok {
			return nil, fmt.Errorf("unknown catalog entry: %s", installName)
		}
		return []batch.Job{batch.NewJob(app.Name, app.Command)}, nil
	case uninstallName != "":
		app, ok := cat.Lookup(uninstallName)
		if !ok {
			return nil, fmt.Errorf("unknown catalog entry: %s", uninstallName)
		}
		cmd, ok := catalog.UninstallCommand(app.Command)
		if !ok {
			return nil, fmt.Errorf("no uninstall script for: %s", uninstallName)
		}
		return []batch.Job{
			batch.NewJob(catalog.UninstallJobName(app.Name), cmd),
		}, nil
	default:
		picker := tui.NewPicker(tview.NewApplication(), cat, hist)
		jobs, err := picker.Run()
		if err != nil {
			return nil, fmt.Errorf("error running picker: %w", err)
		}
		return jobs, nil
	}
}

func printCatalog(cat *catalog.Catalog, hist *history.Store) {
	for _, category := range cat.Categories() {
		fmt.Printf("%s:\n", category)
		for _, app := range cat.ByCategory(category) {
			if date, ok := hist.LastInstallDate(app.Name); ok {
				fmt.Printf("  %s (installed %s)\n", app.Name, date)
			} else {
				fmt.Printf("  %s\n", app.Name)
			}
		}
	}
}
