package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/bootstrap"
	"github.com/MarkoPoloResearchLab/frontdesk/internal/desk"
	"github.com/MarkoPoloResearchLab/frontdesk/internal/healthserver"
	"github.com/MarkoPoloResearchLab/frontdesk/internal/telemetry"
	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	flagListenAddr     = "listen-addr"
	flagHealthAddr     = "health-addr"
	flagAllowedOrigins = "allowed-origins"
	flagJWTSigningKey  = "jwt-signing-key"
	flagJWTIssuer      = "jwt-issuer"
	flagJWTCookieName  = "jwt-cookie-name"
	flagSessionTTL     = "session-ttl"
	flagSeedFile       = "seed-file"
	flagDatabaseURL    = "database-url"
	flagCatalogFile    = "catalog-file"
	flagCompensate     = "compensate"
	envPrefix          = "FRONTDESK"
	defaultHealthAddr  = ":7000"
	tracerName         = "github.com/MarkoPoloResearchLab/frontdesk"
	probeServiceStore  = "frontdesk.store"
	probeServiceBooks  = "frontdesk.catalog"
)

type runtimeConfig struct {
	Desk        desk.Config
	HealthAddr  string
	SeedFile    string
	DatabaseURL string
	CatalogFile string
	Compensate  bool
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "frontdeskd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "frontdeskd",
		Short:         "Reservation pipelines and book catalog over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagListenAddr, "", "HTTP listen address (default :8080)")
	cmd.Flags().String(flagHealthAddr, defaultHealthAddr, "gRPC health listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagJWTSigningKey, "", "session JWT signing key (required)")
	cmd.Flags().String(flagJWTIssuer, "", "session JWT issuer")
	cmd.Flags().String(flagJWTCookieName, "", "session cookie name")
	cmd.Flags().Duration(flagSessionTTL, 0, "session lifetime (e.g. 12h)")
	cmd.Flags().String(flagSeedFile, "", "YAML fixture path (embedded example data when empty)")
	cmd.Flags().String(flagDatabaseURL, "", "catalog database URL (sqlite://, postgres:// or a file path)")
	cmd.Flags().String(flagCatalogFile, "", "catalog JSON file, used when no database URL is set")
	cmd.Flags().Bool(flagCompensate, false, "undo earlier reservations when a later step fails")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagListenAddr, flagHealthAddr, flagAllowedOrigins, flagJWTSigningKey, flagJWTIssuer, flagJWTCookieName, flagSessionTTL, flagSeedFile, flagDatabaseURL, flagCatalogFile, flagCompensate} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.Desk = desk.Config{
		ListenAddr:        strings.TrimSpace(v.GetString(flagListenAddr)),
		AllowedOrigins:    desk.ParseAllowedOrigins(v.GetString(flagAllowedOrigins)),
		SessionSigningKey: v.GetString(flagJWTSigningKey),
		SessionIssuer:     strings.TrimSpace(v.GetString(flagJWTIssuer)),
		SessionCookieName: strings.TrimSpace(v.GetString(flagJWTCookieName)),
		SessionTTL:        v.GetDuration(flagSessionTTL),
	}
	cfg.HealthAddr = strings.TrimSpace(v.GetString(flagHealthAddr))
	cfg.SeedFile = strings.TrimSpace(v.GetString(flagSeedFile))
	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.CatalogFile = strings.TrimSpace(v.GetString(flagCatalogFile))
	cfg.Compensate = v.GetBool(flagCompensate)

	if cfg.HealthAddr == "" {
		return fmt.Errorf("%s is required", flagHealthAddr)
	}
	return cfg.Desk.Validate()
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	world, err := bootstrap.LoadWorld(cfg.SeedFile, 0)
	if err != nil {
		return err
	}

	tracerProvider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tracerProvider)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracerProvider.Shutdown(shutdownCtx)
	}()

	metrics := telemetry.NewRunMetrics()
	executor := bootstrap.NewExecutor(bootstrap.ExecutorConfig{
		Logger:     logger,
		Tracer:     otel.Tracer(tracerName),
		Finalize:   metrics.Observe,
		Compensate: cfg.Compensate,
	})

	books, closeCatalog, err := bootstrap.OpenCatalog(ctx, bootstrap.CatalogConfig{DatabaseURL: cfg.DatabaseURL, File: cfg.CatalogFile}, logger, world.Books)
	if err != nil {
		return err
	}
	defer func() { _ = closeCatalog() }()

	health, err := healthserver.New([]healthserver.Probe{
		{Service: probeServiceStore, Check: func(context.Context) error {
			if len(world.Store.Keys()) == 0 {
				return errors.New("resource store is empty")
			}
			return nil
		}},
		{Service: probeServiceBooks, Check: func(ctx context.Context) error {
			_, listErr := books.List(ctx)
			return listErr
		}},
	}, healthserver.WithLogger(logger))
	if err != nil {
		return err
	}
	healthListener, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	dependencies := desk.Dependencies{
		Logger:   logger,
		Executor: executor,
		Reporter: workflow.NewReporter(),
		Store:    world.Store,
		Flows:    world.Flows(),
		Defaults: desk.Defaults{Wallet: world.Defaults.Wallet, ATM: world.Defaults.ATM, Volume: world.Defaults.Volume},
		Books:    books,
		Metrics:  metrics.Handler(),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return desk.Run(groupCtx, cfg.Desk, dependencies)
	})
	group.Go(func() error {
		return health.Serve(groupCtx, healthListener)
	})
	return group.Wait()
}
