package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/gateway"
	"github.com/spf13/cobra"
)

// shutdownGrace bounds how long pending reports may take after the
// listener stops.
const shutdownGrace = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the honeypot HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			if err := validateConfig(cfg); err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data dirs: %w", err)
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := newStack(ctx, cfg, stackOptions{
				ArchivePath: paths.ArchivePath(),
				Reports:     true,
			}, log)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				if err := st.Close(closeCtx); err != nil {
					log.Warn().Err(err).Msg("shutdown incomplete")
				}
			}()

			srv := gateway.New(cfg.Server, st.engine, log,
				gateway.WithHooks(st.hooks),
				gateway.WithArchive(st.archive),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override listen port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}

// validateConfig logs every issue and fails if there are any.
func validateConfig(c config.Config) error {
	issues := config.Validate(&c)
	if len(issues) == 0 {
		return nil
	}
	for _, issue := range issues {
		log.Error().Str("path", issue.Path).Msg(issue.Message)
	}
	return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
}
