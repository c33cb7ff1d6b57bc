// Package bootstrap assembles the collaborators both binaries share: the
// fixture world, the book catalog and the pipeline executor.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/catalog"
	"github.com/MarkoPoloResearchLab/frontdesk/internal/catalog/gormstore"
	"github.com/MarkoPoloResearchLab/frontdesk/internal/catalog/jsonstore"
	"github.com/MarkoPoloResearchLab/frontdesk/internal/oplog"
	"github.com/MarkoPoloResearchLab/frontdesk/internal/seed"
	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CatalogConfig selects the catalog backend. DatabaseURL wins over File; with
// neither the catalog lives in memory.
type CatalogConfig struct {
	DatabaseURL string
	File        string
}

// Backend names the repository OpenCatalog picked.
func (cfg CatalogConfig) Backend() string {
	switch {
	case cfg.DatabaseURL != "":
		return "database"
	case cfg.File != "":
		return "file"
	default:
		return "memory"
	}
}

// LoadWorld builds the embedded fixture, or the one at seedFile when set.
func LoadWorld(seedFile string, bcryptCost int) (*seed.World, error) {
	var (
		fixture seed.Fixture
		err     error
	)
	if seedFile == "" {
		fixture, err = seed.Default()
	} else {
		fixture, err = seed.Load(seedFile)
	}
	if err != nil {
		return nil, err
	}
	return fixture.Build(bcryptCost)
}

// OpenCatalog opens the configured repository, wraps it in a service and
// fills an empty catalog with books. The returned func releases the backend.
func OpenCatalog(ctx context.Context, cfg CatalogConfig, logger *zap.Logger, books []seed.Book) (*catalog.Service, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		repository catalog.Repository
		cleanup    = func() error { return nil }
	)
	switch cfg.Backend() {
	case "database":
		db, closeDB, err := gormstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database open: %w", err)
		}
		repository = gormstore.New(db)
		cleanup = closeDB
	case "file":
		repository = jsonstore.New(cfg.File)
	default:
		repository = catalog.NewMemoryRepository()
	}

	clock := func() int64 { return time.Now().UTC().Unix() }
	service, err := catalog.NewService(repository, clock, catalog.WithLogger(logger))
	if err != nil {
		_ = cleanup()
		return nil, nil, fmt.Errorf("catalog service init: %w", err)
	}
	seeded, err := service.Seed(ctx, BookInputs(books))
	if err != nil {
		_ = cleanup()
		return nil, nil, fmt.Errorf("catalog seed: %w", err)
	}
	logger.Info("catalog ready", zap.String("backend", cfg.Backend()), zap.Int("seeded_books", seeded))
	return service, cleanup, nil
}

// BookInputs converts fixture books into catalog inputs.
func BookInputs(books []seed.Book) []catalog.BookInput {
	inputs := make([]catalog.BookInput, 0, len(books))
	for _, book := range books {
		inputs = append(inputs, catalog.BookInput{
			Title:    book.Title,
			Author:   book.Author,
			ISBN:     book.ISBN,
			Year:     book.Year,
			Genre:    book.Genre,
			Borrowed: book.Borrowed,
		})
	}
	return inputs
}

// ExecutorConfig carries the optional executor wiring.
type ExecutorConfig struct {
	Logger     *zap.Logger
	Tracer     trace.Tracer
	Finalize   workflow.FinalizeFunc
	Compensate bool
}

// NewExecutor builds an executor that logs through zap and, when configured,
// traces runs, reports outcomes to Finalize and compensates failures.
func NewExecutor(cfg ExecutorConfig) *workflow.Executor {
	options := []workflow.ExecutorOption{workflow.WithOperationLogger(oplog.New(cfg.Logger))}
	if cfg.Tracer != nil {
		options = append(options, workflow.WithTracer(cfg.Tracer))
	}
	if cfg.Finalize != nil {
		options = append(options, workflow.WithFinalizeHook(cfg.Finalize))
	}
	if cfg.Compensate {
		options = append(options, workflow.WithCompensation())
	}
	return workflow.NewExecutor(options...)
}
