package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/seed"
	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

func TestLoadWorld(test *testing.T) {
	test.Parallel()
	world, err := LoadWorld("", bcrypt.MinCost)
	require.NoError(test, err)
	assert.Equal(test, "wallet", world.Defaults.Wallet)
	assert.NotEmpty(test, world.Books)

	_, err = LoadWorld(filepath.Join(test.TempDir(), "missing.yaml"), bcrypt.MinCost)
	assert.ErrorIs(test, err, seed.ErrReadFixture)
}

func TestOpenCatalogBackends(test *testing.T) {
	test.Parallel()
	world, err := LoadWorld("", bcrypt.MinCost)
	require.NoError(test, err)

	testCases := []struct {
		name        string
		cfg         CatalogConfig
		wantBackend string
	}{
		{name: "memory", cfg: CatalogConfig{}, wantBackend: "memory"},
		{name: "json file", cfg: CatalogConfig{File: filepath.Join(test.TempDir(), "books.json")}, wantBackend: "file"},
		{name: "sqlite", cfg: CatalogConfig{DatabaseURL: ":memory:", File: "ignored.json"}, wantBackend: "database"},
	}
	for _, testCase := range testCases {
		assert.Equal(test, testCase.wantBackend, testCase.cfg.Backend(), testCase.name)
		service, cleanup, err := OpenCatalog(context.Background(), testCase.cfg, zap.NewNop(), world.Books)
		require.NoError(test, err, testCase.name)
		books, err := service.List(context.Background())
		require.NoError(test, err, testCase.name)
		assert.Len(test, books, len(world.Books), testCase.name)
		require.NoError(test, cleanup(), testCase.name)
	}
}

func TestOpenCatalogSeedsOnlyOnce(test *testing.T) {
	test.Parallel()
	world, err := LoadWorld("", bcrypt.MinCost)
	require.NoError(test, err)
	path := filepath.Join(test.TempDir(), "books.json")
	core, logs := observer.New(zap.InfoLevel)

	for range 2 {
		service, cleanup, err := OpenCatalog(context.Background(), CatalogConfig{File: path}, zap.New(core), world.Books)
		require.NoError(test, err)
		books, err := service.List(context.Background())
		require.NoError(test, err)
		assert.Len(test, books, len(world.Books))
		require.NoError(test, cleanup())
	}
	_, err = os.Stat(path)
	require.NoError(test, err)

	entries := logs.FilterMessage("catalog ready").All()
	require.Len(test, entries, 2)
	assert.Equal(test, int64(len(world.Books)), entries[0].ContextMap()["seeded_books"])
	assert.Equal(test, int64(0), entries[1].ContextMap()["seeded_books"])
}

func TestNewExecutorCompensates(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name       string
		compensate bool
		wantStock  string
	}{
		{name: "default keeps reservation", compensate: false, wantStock: "4"},
		{name: "compensation restores stock", compensate: true, wantStock: "5"},
	}
	for _, testCase := range testCases {
		world, err := LoadWorld("", bcrypt.MinCost)
		require.NoError(test, err)
		finalized := 0
		executor := NewExecutor(ExecutorConfig{
			Compensate: testCase.compensate,
			Finalize:   func(context.Context, workflow.Outcome) { finalized++ },
		})
		request, err := workflow.NewOrderRequest("SKU123", "wallet", decimal.NewFromInt(1), decimal.NewFromInt(20), "Boulevard Raya")
		require.NoError(test, err)
		outcome := executor.Run(context.Background(), world.Flows().Order, world.Store, request, nil)
		require.False(test, outcome.Succeeded(), testCase.name)
		assert.Equal(test, testCase.compensate, outcome.Compensated, testCase.name)
		item, err := workflow.NewResourceID("SKU123")
		require.NoError(test, err)
		assert.Equal(test, testCase.wantStock, world.Store.Get(item).String(), testCase.name)
		assert.Equal(test, 1, finalized, testCase.name)
	}
}
