package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/app"
	"github.com/charlesng35/wavtrack/internal/database"
	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/pkg/logger"
)

type rootOptions struct {
	configDir string
	cfg       *app.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "wavtrackctl",
		Short: "Operate a WavTrack sync backend",
		Long: `wavtrackctl inspects and repairs the local outbox of a WavTrack
server and mints development tokens.

It reads the same configuration as the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			var paths []string
			if opts.configDir != "" {
				paths = append(paths, opts.configDir)
			}
			cfg, err := app.LoadConfig(paths...)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return logger.InitWithOptions(logger.Options{Level: "warn", Format: "console"})
		},
	}
	root.PersistentFlags().StringVarP(&opts.configDir, "config", "c", "", "configuration directory")

	root.AddCommand(newOutboxCmd(opts), newTokenCmd(opts))
	return root
}

// withLocalStore opens the local store for the duration of fn.
func (o *rootOptions) withLocalStore(fn func(*localstore.Store) error) error {
	db, err := database.Open(o.cfg.Local.DatabaseConfig())
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer database.Close(db)

	if err := database.LocalAutoMigrate(db); err != nil {
		return fmt.Errorf("migrate local store: %w", err)
	}
	store, err := localstore.New(db, localstore.WithMaxAttempts(o.cfg.Sync.MaxAttempts))
	if err != nil {
		return err
	}
	return fn(store)
}

// withRemote opens the remote store and fails when it cannot be reached.
func (o *rootOptions) withRemote(ctx context.Context, fn func(*gorm.DB) error) error {
	db, err := database.Open(o.cfg.Remote.DatabaseConfig())
	if err != nil {
		return fmt.Errorf("open remote database: %w", err)
	}
	defer database.Close(db)

	timeout := o.cfg.Sync.ProbeTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := database.Ping(pingCtx, db); err != nil {
		return fmt.Errorf("remote database unreachable: %w", err)
	}
	return fn(db)
}
