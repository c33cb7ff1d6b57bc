package workflow

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func mustResourceID(test *testing.T, raw string) ResourceID {
	test.Helper()
	value, err := NewResourceID(raw)
	if err != nil {
		test.Fatalf("resource id: %v", err)
	}
	return value
}

func mustQuantity(test *testing.T, raw string) Quantity {
	test.Helper()
	value, err := ParseQuantity(raw)
	if err != nil {
		test.Fatalf("quantity: %v", err)
	}
	return value
}

func mustDecimal(test *testing.T, raw string) decimal.Decimal {
	test.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		test.Fatalf("decimal: %v", err)
	}
	return value
}

func newSeededStore(test *testing.T, seed map[string]string) *MemoryStore {
	test.Helper()
	initial := make(map[ResourceID]Quantity, len(seed))
	for key, raw := range seed {
		initial[mustResourceID(test, key)] = mustQuantity(test, raw)
	}
	return NewMemoryStore(initial)
}

func newTestUsers(test *testing.T) *UserTable {
	test.Helper()
	users := NewUserTable(bcrypt.MinCost)
	if err := users.Register("alice", "secret123"); err != nil {
		test.Fatalf("register: %v", err)
	}
	return users
}

func expectQuantity(test *testing.T, store ResourceStore, key string, want string) {
	test.Helper()
	got := store.Get(mustResourceID(test, key))
	if !got.Equal(mustQuantity(test, want)) {
		test.Fatalf("expected %s=%s, got %s", key, want, got)
	}
}

type countingGuard struct {
	name  string
	calls int
	err   error
}

func (guard *countingGuard) Name() string {
	return guard.name
}

func (guard *countingGuard) Check(_ context.Context, _ ResourceStore, _ Request) (Commit, error) {
	guard.calls++
	if guard.err != nil {
		return Commit{}, guard.err
	}
	return NoCommit(), nil
}

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}
