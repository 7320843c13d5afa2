package main

import (
	"context"
	"docflow/internal/broadcast"
	"docflow/internal/doccache"
	"docflow/internal/logger"
	"docflow/internal/session"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli is the state shared by every sub-command
type cli struct {
	server      string
	sessionFile string
	sessionDays int
	verbose     bool

	log     zerolog.Logger
	store   *session.Store
	session *session.Session
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "docflow", "session.gob")
}

func defaultServer() string {
	if v := os.Getenv("DOCFLOW_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func rootCommand() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:          "docflowctl",
		Short:        "Work with docflow documents from the terminal",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&c.server, "server", defaultServer(), "docflow server address")
	rootCmd.PersistentFlags().StringVar(&c.sessionFile, "session-file", defaultSessionFile(), "where the signed in identity is kept")
	rootCmd.PersistentFlags().IntVar(&c.sessionDays, "session-days", 7, "days a login stays valid for new shells")
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if c.verbose {
			level = "debug"
		}
		c.log = logger.New(logger.Config{Level: level, Environment: "development"})

		c.store = session.NewStore(time.Duration(c.sessionDays) * 24 * time.Hour)
		if err := c.store.Restore(c.sessionFile); err != nil {
			c.log.Warn().Err(err).Str("file", c.sessionFile).Msg("ignoring unreadable session file")
		}
		c.session = session.New(c.store)
		return nil
	}

	rootCmd.AddCommand(
		loginCommand(c),
		logoutCommand(c),
		listCommand(c),
		createCommand(c),
		updateCommand(c),
		deleteCommand(c),
		approveCommand(c),
		rejectCommand(c),
		watchCommand(c),
	)
	return rootCmd
}

func (c *cli) api(token string) *doccache.HTTPClient {
	return doccache.NewHTTPClient(strings.TrimRight(c.server, "/"), token)
}

func (c *cli) wsURL() string {
	base := strings.TrimRight(c.server, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}

// openCache mounts a document cache for the signed in identity. With
// realtime set the cache is connected to the hub so other clients see its
// writes; a failed connection only costs the broadcast.
func (c *cli) openCache(ctx context.Context, realtime bool) (*doccache.Cache, func(), error) {
	id, err := c.session.Require()
	if err != nil {
		return nil, nil, err
	}

	opts := doccache.Options{
		API:     c.api(id.Token),
		Session: c.session,
		Log:     c.log,
	}
	closeBus := func() {}
	if realtime {
		bus, err := broadcast.DialWS(ctx, c.wsURL(), id.Token, c.log)
		if err != nil {
			c.log.Warn().Err(err).Msg("realtime updates unavailable")
		} else {
			opts.Bus = bus
			closeBus = func() { _ = bus.Close() }
		}
	}

	cache := doccache.New(opts)
	return cache, func() {
		cache.Close()
		closeBus()
	}, nil
}
