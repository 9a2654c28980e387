package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/honeypot/internal/domain"
	"github.com/soyeahso/honeypot/internal/engine"
	"github.com/soyeahso/honeypot/internal/report"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// transcript is a scripted run of counterpart messages.
type transcript struct {
	SessionID string   `yaml:"sessionId"`
	Messages  []string `yaml:"messages"`
}

func loadTranscript(path string) (transcript, error) {
	var t transcript
	data, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parsing transcript: %w", err)
	}
	if len(t.Messages) == 0 {
		return t, fmt.Errorf("transcript %s has no messages", path)
	}
	if t.SessionID == "" {
		t.SessionID = "sim-" + uuid.NewString()
	}
	return t, nil
}

func newSimulateCmd() *cobra.Command {
	var (
		offline  bool
		reports  bool
		archived bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "simulate <transcript.yaml>",
		Short: "Replay a scripted conversation through the engine",
		Long: "Feeds each message of a YAML transcript to the engine as the counterpart,\n" +
			"printing signals, the verdict and the persona's reply, until the engagement ends.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTranscript(args[0])
			if err != nil {
				return err
			}

			c := cfg
			if offline {
				c.Generator.Provider = "mock"
				c.Generator.Fallbacks = nil
				c.Governor.MinIntervalMs = 0
				c.Governor.SafetyMarginMs = 0
			}
			if err := validateConfig(c); err != nil {
				return err
			}

			opts := stackOptions{Reports: reports}
			if archived {
				if err := paths.EnsureDirs(); err != nil {
					return err
				}
				opts.ArchivePath = paths.ArchivePath()
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			st, err := newStack(ctx, c, opts, log)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			return runTranscript(ctx, cmd.OutOrStdout(), st.engine, t, asJSON)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "use canned replies instead of the configured provider")
	cmd.Flags().BoolVar(&reports, "report", false, "send the final report to the configured callback and NATS sinks")
	cmd.Flags().BoolVar(&archived, "archive", false, "save the final report to the engagement archive")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per turn")

	return cmd
}

// runTranscript plays t until it runs out or the engine ends the engagement.
func runTranscript(ctx context.Context, w io.Writer, eng *engine.Engine, t transcript, asJSON bool) error {
	enc := json.NewEncoder(w)
	var last engine.Response
	for _, text := range t.Messages {
		last = eng.Respond(ctx, engine.TurnRequest{
			SessionID: t.SessionID,
			Message: domain.Message{
				Sender:    domain.SenderCounterpart,
				Text:      text,
				Timestamp: time.Now(),
			},
		})

		if asJSON {
			if err := enc.Encode(last); err != nil {
				return err
			}
		} else {
			printTurn(w, text, last)
		}
		if last.Verdict.End() {
			break
		}
	}

	if asJSON {
		return nil
	}
	snap, ok := eng.Snapshot(t.SessionID)
	if !ok {
		return nil
	}
	r := report.Build(snap, last.Verdict, time.Now())
	fmt.Fprintf(w, "\nsession %s: %d turns, grade %s (%d), exit %s\n",
		snap.ID, snap.TurnCount, r.Value.Grade, r.Value.Score, last.Verdict.Rule)
	data, err := json.MarshalIndent(r.ExtractedIntelligence, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printTurn(w io.Writer, text string, r engine.Response) {
	fmt.Fprintf(w, "[%d] scammer: %s\n", r.Turn, text)
	if r.Signals.IsScam {
		fmt.Fprintf(w, "    signals: %s %s (%s)\n",
			r.Signals.ScamType, r.Signals.Confidence, strings.Join(r.Signals.Indicators, ", "))
	}
	if r.NewEntities > 0 {
		fmt.Fprintf(w, "    +%d intelligence entries\n", r.NewEntities)
	}
	fmt.Fprintf(w, "    verdict: %s (%s)\n", r.Verdict.Decision, r.Verdict.Reason)
	suffix := ""
	if r.Fallback {
		suffix = " [fallback]"
	}
	fmt.Fprintf(w, "[%d] agent: %s%s\n", r.Turn, r.Reply, suffix)
}
