package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/charlesng35/wavtrack/internal/localstore"
	"github.com/charlesng35/wavtrack/internal/models"
	"github.com/charlesng35/wavtrack/internal/outbox"
	"github.com/charlesng35/wavtrack/internal/remote"
)

func newOutboxCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay the local outbox",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List entries awaiting replay, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLocalStore(func(store *localstore.Store) error {
				entries, err := store.Pending(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), entries)
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 0, "maximum entries to show (0 shows all)")

	deadLetters := &cobra.Command{
		Use:   "dead-letters",
		Short: "List entries parked after exhausting their attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLocalStore(func(store *localstore.Store) error {
				entries, err := store.DeadLetters(cmd.Context())
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), entries)
			})
		},
	}

	requeue := &cobra.Command{
		Use:   "requeue <entry-id>",
		Short: "Return a dead-lettered entry to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			return opts.withLocalStore(func(store *localstore.Store) error {
				if err := store.Requeue(cmd.Context(), uint(id)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "requeued %d\n", id)
				return nil
			})
		},
	}

	drain := &cobra.Command{
		Use:   "drain",
		Short: "Replay pending entries against the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLocalStore(func(store *localstore.Store) error {
				return opts.withRemote(cmd.Context(), func(db *gorm.DB) error {
					applier, err := remote.NewGormApplier(db)
					if err != nil {
						return err
					}
					drainer, err := outbox.NewDrainer(store, applier,
						outbox.WithRateLimit(opts.cfg.Sync.ReplayRate, opts.cfg.Sync.ReplayBurst),
						outbox.WithBatchSize(opts.cfg.Sync.BatchSize),
					)
					if err != nil {
						return err
					}
					result, err := drainer.Drain(cmd.Context(), outbox.TriggerManual)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "applied %d, failed %d, dead-lettered %d, remaining %d\n",
						result.Applied, result.Failed, result.DeadLettered, result.Remaining)
					return result.Err
				})
			})
		},
	}

	cmd.AddCommand(list, deadLetters, requeue, drain)
	return cmd
}

func printEntries(out io.Writer, entries []models.OutboxEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "no entries")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOP\tKIND\tRECORD\tUSER\tATTEMPTS\tQUEUED\tLAST ERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.Operation, e.RecordKind, e.RecordID, e.UserID, e.Attempts,
			e.Timestamp.UTC().Format(time.RFC3339), e.LastError)
	}
	return w.Flush()
}
