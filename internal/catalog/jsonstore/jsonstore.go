// Package jsonstore persists the catalog as one JSON array on disk. Every
// mutation reads the whole file, applies the change and rewrites the file.
package jsonstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/catalog"
	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

const (
	errorOperationStore = "store"
	errorSubjectFile    = "file"
	errorCodeRead       = "read"
	errorCodeDecode     = "decode"
	errorCodeEncode     = "encode"
	errorCodeWrite      = "write"
	filePermissions     = 0o644
	legacyIDTemplate    = "%d:%s:%s"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// document is the on-disk shape of a book. Files written by older tools carry
// no id or metadata; those books get a stable id derived from their position.
type document struct {
	ID             string              `json:"id,omitempty"`
	Title          string              `json:"title"`
	Author         string              `json:"author"`
	ISBN           string              `json:"isbn,omitempty"`
	Year           string              `json:"year"`
	Genre          string              `json:"genre"`
	Borrowed       bool                `json:"borrowed"`
	Metadata       jsoniter.RawMessage `json:"metadata,omitempty"`
	CreatedUnixUTC int64               `json:"created_unix_utc,omitempty"`
}

// Store implements catalog.Repository over a JSON file.
type Store struct {
	mutex sync.Mutex
	path  string
}

// New returns a Store for path. The file is created on the first write.
func New(path string) *Store {
	return &Store{path: path}
}

// WithTx loads the snapshot, runs fn against it, and writes it back when fn
// succeeds and changed something.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txRepository catalog.Repository) error) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	books, err := store.load()
	if err != nil {
		return err
	}
	repository, snapshot := catalog.NewSnapshotRepository(books)
	if err := fn(ctx, repository); err != nil {
		return err
	}
	updated := snapshot()
	if slices.Equal(books, updated) {
		return nil
	}
	return store.save(updated)
}

func (store *Store) Insert(ctx context.Context, book catalog.Book) error {
	return store.WithTx(ctx, func(ctx context.Context, txRepository catalog.Repository) error {
		return txRepository.Insert(ctx, book)
	})
}

func (store *Store) Get(ctx context.Context, id catalog.BookID) (catalog.Book, error) {
	books, err := store.List(ctx)
	if err != nil {
		return catalog.Book{}, err
	}
	repository, _ := catalog.NewSnapshotRepository(books)
	return repository.Get(ctx, id)
}

func (store *Store) List(_ context.Context) ([]catalog.Book, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.load()
}

func (store *Store) Update(ctx context.Context, book catalog.Book) error {
	return store.WithTx(ctx, func(ctx context.Context, txRepository catalog.Repository) error {
		return txRepository.Update(ctx, book)
	})
}

func (store *Store) Delete(ctx context.Context, id catalog.BookID) error {
	return store.WithTx(ctx, func(ctx context.Context, txRepository catalog.Repository) error {
		return txRepository.Delete(ctx, id)
	})
}

func (store *Store) load() ([]catalog.Book, error) {
	raw, err := os.ReadFile(store.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreError(errorCodeRead, err)
	}
	var documents []document
	if len(raw) > 0 {
		if err := codec.Unmarshal(raw, &documents); err != nil {
			return nil, wrapStoreError(errorCodeDecode, err)
		}
	}
	books := make([]catalog.Book, 0, len(documents))
	for index, entry := range documents {
		book, err := entry.toBook(index)
		if err != nil {
			return nil, wrapStoreError(errorCodeDecode, fmt.Errorf("entry %d: %w", index, err))
		}
		books = append(books, book)
	}
	return books, nil
}

func (store *Store) save(books []catalog.Book) error {
	documents := make([]document, 0, len(books))
	for _, book := range books {
		documents = append(documents, fromBook(book))
	}
	raw, err := codec.MarshalIndent(documents, "", "  ")
	if err != nil {
		return wrapStoreError(errorCodeEncode, err)
	}
	directory := filepath.Dir(store.path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return wrapStoreError(errorCodeWrite, err)
	}
	temporary, err := os.CreateTemp(directory, filepath.Base(store.path)+".*.tmp")
	if err != nil {
		return wrapStoreError(errorCodeWrite, err)
	}
	defer os.Remove(temporary.Name())
	if _, err := temporary.Write(raw); err != nil {
		_ = temporary.Close()
		return wrapStoreError(errorCodeWrite, err)
	}
	if err := temporary.Chmod(filePermissions); err != nil {
		_ = temporary.Close()
		return wrapStoreError(errorCodeWrite, err)
	}
	if err := temporary.Close(); err != nil {
		return wrapStoreError(errorCodeWrite, err)
	}
	if err := os.Rename(temporary.Name(), store.path); err != nil {
		return wrapStoreError(errorCodeWrite, err)
	}
	return nil
}

func (entry document) toBook(index int) (catalog.Book, error) {
	rawID := entry.ID
	if rawID == "" {
		rawID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf(legacyIDTemplate, index, entry.Title, entry.Author))).String()
	}
	id, err := catalog.NewBookID(rawID)
	if err != nil {
		return catalog.Book{}, err
	}
	metadata, err := catalog.NewMetadataJSON(string(entry.Metadata))
	if err != nil {
		return catalog.Book{}, err
	}
	return catalog.Book{
		ID:             id,
		Title:          entry.Title,
		Author:         entry.Author,
		ISBN:           entry.ISBN,
		Year:           entry.Year,
		Genre:          entry.Genre,
		Borrowed:       entry.Borrowed,
		Metadata:       metadata,
		CreatedUnixUTC: entry.CreatedUnixUTC,
	}, nil
}

func fromBook(book catalog.Book) document {
	return document{
		ID:             book.ID.String(),
		Title:          book.Title,
		Author:         book.Author,
		ISBN:           book.ISBN,
		Year:           book.Year,
		Genre:          book.Genre,
		Borrowed:       book.Borrowed,
		Metadata:       jsoniter.RawMessage(book.Metadata.String()),
		CreatedUnixUTC: book.CreatedUnixUTC,
	}
}

func wrapStoreError(code string, err error) error {
	return workflow.WrapError(errorOperationStore, errorSubjectFile, code, err)
}
