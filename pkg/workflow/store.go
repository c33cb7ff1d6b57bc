package workflow

import (
	"sort"
	"sync"
)

const (
	errorOperationStore = "store"
	errorSubjectCounter = "counter"
	errorCodeDebit      = "debit"
)

// ResourceStore holds the mutable counters guards check and commit against.
// Guards must check sufficiency with Get before calling Debit.
type ResourceStore interface {
	Get(id ResourceID) Quantity
	Debit(id ResourceID, amount Quantity) error
	Credit(id ResourceID, amount Quantity) error
}

// MemoryStore is an in-process ResourceStore. It implements sync.Locker so an
// Executor can serialize whole pipeline runs against it.
type MemoryStore struct {
	runMutex   sync.Mutex
	dataMutex  sync.RWMutex
	quantities map[string]Quantity
}

// NewMemoryStore returns a store seeded with a copy of initial.
func NewMemoryStore(initial map[ResourceID]Quantity) *MemoryStore {
	quantities := make(map[string]Quantity, len(initial))
	for id, quantity := range initial {
		quantities[id.String()] = quantity
	}
	return &MemoryStore{quantities: quantities}
}

// Lock acquires the run-level lock.
func (store *MemoryStore) Lock() {
	store.runMutex.Lock()
}

// Unlock releases the run-level lock.
func (store *MemoryStore) Unlock() {
	store.runMutex.Unlock()
}

// Get returns the stored quantity, or zero when the id is absent.
func (store *MemoryStore) Get(id ResourceID) Quantity {
	store.dataMutex.RLock()
	defer store.dataMutex.RUnlock()
	return store.quantities[id.String()]
}

// Debit subtracts amount. It fails without mutating when the result would be negative.
func (store *MemoryStore) Debit(id ResourceID, amount Quantity) error {
	store.dataMutex.Lock()
	defer store.dataMutex.Unlock()
	updated, err := store.quantities[id.String()].Sub(amount)
	if err != nil {
		return WrapError(errorOperationStore, errorSubjectCounter, errorCodeDebit, err)
	}
	store.quantities[id.String()] = updated
	return nil
}

// Credit adds amount.
func (store *MemoryStore) Credit(id ResourceID, amount Quantity) error {
	store.dataMutex.Lock()
	defer store.dataMutex.Unlock()
	store.quantities[id.String()] = store.quantities[id.String()].Add(amount)
	return nil
}

// Set overwrites a counter. Used when seeding or restocking outside a pipeline run.
func (store *MemoryStore) Set(id ResourceID, quantity Quantity) {
	store.dataMutex.Lock()
	defer store.dataMutex.Unlock()
	store.quantities[id.String()] = quantity
}

// Snapshot returns a copy of every counter.
func (store *MemoryStore) Snapshot() map[string]Quantity {
	store.dataMutex.RLock()
	defer store.dataMutex.RUnlock()
	snapshot := make(map[string]Quantity, len(store.quantities))
	for key, quantity := range store.quantities {
		snapshot[key] = quantity
	}
	return snapshot
}

// Keys returns the stored ids in sorted order.
func (store *MemoryStore) Keys() []string {
	store.dataMutex.RLock()
	defer store.dataMutex.RUnlock()
	keys := make([]string, 0, len(store.quantities))
	for key := range store.quantities {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
