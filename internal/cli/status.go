package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/llm"
	"github.com/soyeahso/honeypot/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show paths and a configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writeStatus(cmd.OutOrStdout(), paths, cfg)
			return nil
		},
	}
}

func writeStatus(w io.Writer, p config.Paths, c config.Config) {
	fmt.Fprintf(w, "Honeypot %s (commit %s)\n\n", version.Version, version.Commit)

	fmt.Fprintf(w, "Config:    %s\n", p.Config)
	fmt.Fprintf(w, "Data:      %s\n", p.Data)
	fmt.Fprintf(w, "Logs:      %s\n", p.Logs)
	fmt.Fprintln(w)

	auth := "api-key"
	if c.Server.APIKey == "" {
		auth = "open"
	}
	fmt.Fprintf(w, "Server:    port=%d bind=%s auth=%s\n", c.Server.Port, c.Server.Bind, auth)

	e := c.Engagement
	fmt.Fprintf(w, "Exit:      max=%d min=%d categories=%d saturation=%d\n",
		e.MaxTurns, e.MinTurns, e.HighValueCategories, e.SaturationThreshold)
	fmt.Fprintf(w, "Governor:  rpm=%d interval=%dms margin=%dms\n",
		c.Governor.RequestsPerMinute, c.Governor.MinIntervalMs, c.Governor.SafetyMarginMs)

	chain := append([]string{c.Generator.Provider}, c.Generator.Fallbacks...)
	fmt.Fprintf(w, "Generator: %s model=%s\n", strings.Join(chain, " -> "), c.Generator.Model)
	if _, err := llm.NewRegistryFromConfig(c.Generator, log); err != nil {
		fmt.Fprintf(w, "           error: %v\n", err)
	}
	fmt.Fprintf(w, "Persona:   %s, %d, %s\n", c.Persona.Name, c.Persona.Age, c.Persona.Occupation)

	var sinks []string
	if c.Callback.URL != "" {
		sinks = append(sinks, "callback="+c.Callback.URL)
	}
	if c.Events.NATSURL != "" {
		sinks = append(sinks, "nats="+c.Events.Subject)
	}
	if c.Archive.Driver != "none" {
		sinks = append(sinks, "archive="+c.Archive.Driver)
	}
	if len(sinks) == 0 {
		sinks = []string{"(none)"}
	}
	fmt.Fprintf(w, "Reports:   %s\n", strings.Join(sinks, " "))

	issues := config.Validate(&c)
	if len(issues) > 0 {
		fmt.Fprintf(w, "\nValidation issues (%d):\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(w, "  - %s\n", issue)
		}
	}
}
