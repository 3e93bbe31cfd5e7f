package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/hotboard/internal/adapters/entitystore"
	service "github.com/okian/hotboard/internal/app"
	"github.com/okian/hotboard/internal/config"
	"github.com/okian/hotboard/internal/loadtest"
)

// storeFlags override the entity store settings of the loaded config.
type storeFlags struct {
	driver string
	dsn    string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.driver, "driver", "", "entity store driver: sqlite or postgres (default: from config)")
	cmd.Flags().StringVar(&f.dsn, "dsn", "", "entity store DSN (default: from config)")
}

func (f *storeFlags) open(ctx context.Context) (service.EntityStore, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped by config
	}
	if f.driver != "" {
		cfg.EntityDriver = f.driver
	}
	if f.dsn != "" {
		cfg.EntityDSN = f.dsn
	}
	if cfg.EntityDriver == config.DriverMemory {
		return nil, fmt.Errorf("%w: entity_driver %q does not persist; pass --driver and --dsn", config.ErrInvalidConfig, cfg.EntityDriver)
	}
	return service.OpenEntityStore(ctx, cfg) //nolint:wrapcheck // names the driver
}

func entitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Manage the primary entity store",
	}
	cmd.AddCommand(entitiesImportCmd())
	cmd.AddCommand(entitiesCountCmd())
	return cmd
}

func entitiesImportCmd() *cobra.Command {
	var (
		sf     storeFlags
		format string
		batch  int
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Upsert entities from a JSON or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(args[0])), ".")
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err //nolint:wrapcheck // names the file
			}
			defer func() { _ = f.Close() }()

			store, err := sf.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := entitystore.Import(cmd.Context(), store, f, format, batch)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entities\n", n)
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "", "json or csv (default: from the file extension)")
	cmd.Flags().IntVar(&batch, "batch", 500, "rows per upsert")
	return cmd
}

func entitiesCountCmd() *cobra.Command {
	var sf storeFlags

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored entities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := sf.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			n, err := store.Count(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck // store errors are descriptive
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	sf.register(cmd)
	return cmd
}

func loadtestCmd(g *globalFlags) *cobra.Command {
	var (
		cfg  loadtest.Config
		seed bool
		sf   storeFlags
	)

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Submit generated events and verify the resulting leaderboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.BaseURL = g.url
			cfg.Timeout = g.timeout
			if seed {
				store, err := sf.open(cmd.Context())
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				cfg.Seed = store
			}
			stats, err := loadtest.Run(cmd.Context(), &cfg)
			if err != nil {
				return err //nolint:wrapcheck // already wrapped by step
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().IntVar(&cfg.NumEvents, "events", 10_000, "number of events to submit")
	cmd.Flags().IntVar(&cfg.NumEntities, "entities", 500, "size of the entity population")
	cmd.Flags().Float64Var(&cfg.ReplyRatio, "reply-ratio", 0.2, "share of events that are replies")
	cmd.Flags().DurationVar(&cfg.Spread, "spread", 0, "spread event times over this window (default 24h)")
	cmd.Flags().IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "concurrent submitters")
	cmd.Flags().StringVar(&cfg.Board, "board", "daily", "leaderboard to verify: daily or weekly")
	cmd.Flags().IntVar(&cfg.TopN, "top", 50, "rows to read back and verify")
	cmd.Flags().BoolVar(&cfg.Recompute, "recompute", true, "trigger a recompute before reading back")
	cmd.Flags().StringVar(&cfg.OutputFile, "output", "", "write generated events to this JSON file")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "log every failure and mismatch")
	cmd.Flags().BoolVar(&seed, "seed-entities", false, "write the generated entities to the entity store first")
	sf.register(cmd)
	return cmd
}
