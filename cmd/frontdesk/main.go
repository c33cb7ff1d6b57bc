package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/bootstrap"
	"github.com/MarkoPoloResearchLab/frontdesk/internal/console"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagSeedFile       = "seed-file"
	flagDatabaseURL    = "database-url"
	flagCatalogFile    = "catalog-file"
	flagCompensate     = "compensate"
	flagVerbose        = "verbose"
	envPrefix          = "FRONTDESK"
	defaultCatalogFile = "books.json"
)

type runtimeConfig struct {
	SeedFile    string
	Catalog     bootstrap.CatalogConfig
	Compensate  bool
	Verbose     bool
	WithCatalog bool
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "frontdesk: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	root := &cobra.Command{
		Use:           "frontdesk",
		Short:         "Run reservation pipelines and manage the book catalog from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
	}
	root.PersistentFlags().String(flagSeedFile, "", "YAML fixture path (embedded example data when empty)")
	root.PersistentFlags().String(flagDatabaseURL, "", "catalog database URL (sqlite://, postgres:// or a file path)")
	root.PersistentFlags().String(flagCatalogFile, defaultCatalogFile, "catalog JSON file, used when no database URL is set")
	root.PersistentFlags().Bool(flagCompensate, false, "undo earlier reservations when a later step fails")
	root.PersistentFlags().Bool(flagVerbose, false, "log every pipeline run to stderr")

	root.AddCommand(&cobra.Command{
		Use:   "console",
		Short: "Interactive menu over every flow and the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.WithCatalog = true
			return withDesk(cmd, cfg, func(ctx context.Context, desk console.Desk) error {
				session, err := console.NewSession(desk, cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				return session.Run(ctx)
			})
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "demo",
		Short: "Replay the example orders, login, backup and withdrawal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDesk(cmd, cfg, func(ctx context.Context, desk console.Desk) error {
				_, err := console.RunDemo(ctx, desk, cmd.OutOrStdout())
				return err
			})
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "books",
		Short: "Add, list, edit, delete, borrow and return catalog books",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.WithCatalog = true
			return withDesk(cmd, cfg, func(ctx context.Context, desk console.Desk) error {
				session, err := console.NewSession(desk, cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				return session.RunCatalog(ctx)
			})
		},
	})
	return root
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagSeedFile, flagDatabaseURL, flagCatalogFile, flagCompensate, flagVerbose} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.SeedFile = strings.TrimSpace(v.GetString(flagSeedFile))
	cfg.Catalog = bootstrap.CatalogConfig{
		DatabaseURL: strings.TrimSpace(v.GetString(flagDatabaseURL)),
		File:        strings.TrimSpace(v.GetString(flagCatalogFile)),
	}
	cfg.Compensate = v.GetBool(flagCompensate)
	cfg.Verbose = v.GetBool(flagVerbose)
	return nil
}

func withDesk(cmd *cobra.Command, cfg *runtimeConfig, run func(ctx context.Context, desk console.Desk) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := zap.NewNop()
	if cfg.Verbose {
		development, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("logger init: %w", err)
		}
		logger = development
	}
	defer func() { _ = logger.Sync() }()

	world, err := bootstrap.LoadWorld(cfg.SeedFile, 0)
	if err != nil {
		return err
	}
	desk := console.Desk{
		Executor: bootstrap.NewExecutor(bootstrap.ExecutorConfig{Logger: logger, Compensate: cfg.Compensate}),
		Store:    world.Store,
		Flows:    world.Flows(),
		Defaults: world.Defaults,
	}
	if cfg.WithCatalog {
		books, closeCatalog, err := bootstrap.OpenCatalog(ctx, cfg.Catalog, logger, world.Books)
		if err != nil {
			return err
		}
		defer func() { _ = closeCatalog() }()
		desk.Books = books
	}
	return run(ctx, desk)
}
