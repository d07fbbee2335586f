// Package main implements prwatch, a terminal dashboard that polls GitHub
// for a team's open pull requests and review requests.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/prwatch/prwatch/pkg/cache"
	"github.com/prwatch/prwatch/pkg/config"
	"github.com/prwatch/prwatch/pkg/github"
	"github.com/prwatch/prwatch/pkg/tracker"
	"github.com/prwatch/prwatch/pkg/ui"
)

func main() {
	var (
		configPath = pflag.String("file", config.DefaultPath(), "path to YAML config file")
		names      = pflag.StringSlice("names", nil, "GitHub usernames to track (overrides config file)")
		daysBack   = pflag.Int("days", 0, "number of past days to search for PRs")
		token      = pflag.String("token", "", "GitHub API token")
		org        = pflag.String("org", "", "GitHub organization to filter by")
		me         = pflag.String("me", "", "own username, enables the review-requested view")
		team       = pflag.String("team", "", "org/team slug whose review requests to track")
		cachePath  = pflag.String("cache", "", "cache file path (default ~/.prwatch/cache.json)")
		noCache    = pflag.Bool("no-cache", false, "disable the on-disk cache")
		logOutput  = pflag.String("log-output", "", "write log records to this file (stderr would corrupt the display)")
		verbose    = pflag.BoolP("verbose", "v", false, "verbose logging")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(*names) > 0 {
		cfg.Usernames = *names
	}
	if *daysBack > 0 {
		cfg.DaysBack = *daysBack
	}
	if *token != "" {
		cfg.Token = *token
	}
	if *org != "" {
		cfg.Org = *org
	}
	if *me != "" {
		cfg.Me = *me
	}
	if *team != "" {
		cfg.Team = *team
	}
	if *cachePath != "" {
		cfg.CachePath = *cachePath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		pflag.Usage()
		os.Exit(1)
	}

	setupLogging(*logOutput, *verbose)

	client := github.New(github.Config{Token: cfg.Token, HTTPTimeout: 30 * time.Second})
	defer client.Close()

	var store *cache.Store
	if !*noCache {
		path := cfg.CachePath
		if path == "" {
			path = config.DefaultCachePath()
		}
		if path != "" {
			store = cache.Open(path)
		}
	}

	title := fmt.Sprintf("Team PRs opened in the last %d days.", cfg.DaysBack)
	model := ui.New(title, cfg.Me)
	program := tea.NewProgram(model, tea.WithAltScreen())

	trk, err := tracker.New(client, store, ui.NewProgramSink(program), tracker.Config{
		Usernames: cfg.Usernames,
		Org:       cfg.Org,
		DaysBack:  cfg.DaysBack,
		Me:        cfg.Me,
		Team:      cfg.Team,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	model.SetHooks(
		func() {
			trk.Seed()
			if cfg.FetchOnStartup() {
				trk.Sync(ctx)
			}
		},
		func() { trk.Sync(ctx) },
	)

	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging routes slog away from the terminal: to a file when asked
// for, otherwise into the void. The TUI owns the screen.
func setupLogging(path string, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = io.Discard
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file: %v\n", err)
		} else {
			w = file
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
