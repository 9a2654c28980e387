package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/soyeahso/honeypot/internal/archive"
	"github.com/spf13/cobra"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived engagements",
	}

	cmd.AddCommand(newArchiveListCmd())
	cmd.AddCommand(newArchiveShowCmd())
	cmd.AddCommand(newArchiveStatsCmd())

	return cmd
}

// withArchive opens the configured archive for the duration of fn.
func withArchive(ctx context.Context, fn func(context.Context, archive.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := archive.Open(ctx, cfg.Archive, paths.ArchivePath(), log)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("archive is disabled (archive.driver is \"none\")")
	}
	defer store.Close()
	return fn(ctx, store)
}

func newArchiveListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently ended engagements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd.Context(), func(ctx context.Context, store archive.Store) error {
				records, err := store.List(ctx, limit)
				if err != nil {
					return err
				}
				return writeRecords(cmd.OutOrStdout(), records)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of engagements (0 for all)")
	return cmd
}

func newArchiveShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the full report of an archived engagement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd.Context(), func(ctx context.Context, store archive.Store) error {
				rec, err := store.Get(ctx, args[0])
				if errors.Is(err, archive.ErrNotFound) {
					return fmt.Errorf("no archived engagement %q", args[0])
				}
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := json.Indent(&buf, rec.Report, "", "  "); err != nil {
					return fmt.Errorf("stored report is not valid JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), buf.String())
				return nil
			})
		},
	}
}

func newArchiveStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise the archive by grade and scam type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd.Context(), func(ctx context.Context, store archive.Store) error {
				st, err := store.Stats(ctx)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}

func writeRecords(w io.Writer, records []archive.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no archived engagements")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tENDED\tTYPE\tGRADE\tSCORE\tTURNS\tEXIT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.SessionID, r.EndedAt.Local().Format(time.DateTime), r.ScamType,
			r.Grade, r.Score, r.TurnCount, r.ExitReason)
	}
	return tw.Flush()
}
