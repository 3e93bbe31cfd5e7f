// Command hotboardctl drives a hotboard server from the command line and
// manages its primary entity store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/hotboard/pkg/logger"
)

const (
	defaultURL     = "http://localhost:9080"
	defaultTimeout = 30 * time.Second
)

type globalFlags struct {
	url      string
	timeout  time.Duration
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "hotboardctl",
		Short:         "Record events, trigger recomputes and read hotboard leaderboards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err //nolint:wrapcheck // init errors are descriptive
			}
			return logger.SetLevelString(g.logLevel) //nolint:wrapcheck // names the bad level
		},
	}

	root.PersistentFlags().StringVar(&g.url, "url", defaultURL, "base URL of the hotboard server")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", defaultTimeout, "HTTP request timeout")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(recordCmd(g))
	root.AddCommand(recomputeCmd(g))
	root.AddCommand(topCmd(g))
	root.AddCommand(loadtestCmd(g))
	root.AddCommand(entitiesCmd())

	return root
}
