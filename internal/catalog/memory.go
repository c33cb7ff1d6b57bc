package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
)

const (
	errorOperationRepository = "repository"
	errorSubjectBook         = "book"
	errorCodeGet             = "get"
	errorCodeInsert          = "insert"
	errorCodeUpdate          = "update"
	errorCodeDelete          = "delete"
	errorCodeDuplicate       = "duplicate"
)

// MemoryRepository keeps books in insertion order. WithTx runs fn against a
// copy and publishes it only when fn succeeds.
type MemoryRepository struct {
	mutex sync.Mutex
	books []Book
}

// NewMemoryRepository returns a repository holding books.
func NewMemoryRepository(books ...Book) *MemoryRepository {
	return &MemoryRepository{books: append([]Book(nil), books...)}
}

// Books returns a copy of the stored books.
func (repository *MemoryRepository) Books() []Book {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	return append([]Book(nil), repository.books...)
}

func (repository *MemoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context, txRepository Repository) error) error {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	view := &memoryView{books: append([]Book(nil), repository.books...)}
	if err := fn(ctx, view); err != nil {
		return err
	}
	repository.books = view.books
	return nil
}

func (repository *MemoryRepository) Insert(ctx context.Context, book Book) error {
	return repository.WithTx(ctx, func(ctx context.Context, txRepository Repository) error {
		return txRepository.Insert(ctx, book)
	})
}

func (repository *MemoryRepository) Get(ctx context.Context, id BookID) (Book, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	return (&memoryView{books: repository.books}).Get(ctx, id)
}

func (repository *MemoryRepository) List(ctx context.Context) ([]Book, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	return (&memoryView{books: repository.books}).List(ctx)
}

func (repository *MemoryRepository) Update(ctx context.Context, book Book) error {
	return repository.WithTx(ctx, func(ctx context.Context, txRepository Repository) error {
		return txRepository.Update(ctx, book)
	})
}

func (repository *MemoryRepository) Delete(ctx context.Context, id BookID) error {
	return repository.WithTx(ctx, func(ctx context.Context, txRepository Repository) error {
		return txRepository.Delete(ctx, id)
	})
}

// memoryView is the unlocked working set used inside a transaction.
type memoryView struct {
	books []Book
}

// NewSnapshotRepository exposes books as a Repository without locking, for
// stores that load a whole snapshot, mutate it, and write it back.
func NewSnapshotRepository(books []Book) (Repository, func() []Book) {
	view := &memoryView{books: append([]Book(nil), books...)}
	return view, func() []Book { return view.books }
}

func (view *memoryView) WithTx(ctx context.Context, fn func(ctx context.Context, txRepository Repository) error) error {
	return fn(ctx, view)
}

func (view *memoryView) Insert(_ context.Context, book Book) error {
	if _, found := view.indexOf(book.ID); found {
		return wrapRepositoryError(errorCodeInsert, fmt.Errorf("%w: book %s exists", ErrInvalidBookID, book.ID))
	}
	if book.ISBN != "" {
		for _, existing := range view.books {
			if strings.EqualFold(existing.ISBN, book.ISBN) {
				return wrapRepositoryError(errorCodeDuplicate, ErrDuplicateISBN)
			}
		}
	}
	view.books = append(view.books, book)
	return nil
}

func (view *memoryView) Get(_ context.Context, id BookID) (Book, error) {
	index, found := view.indexOf(id)
	if !found {
		return Book{}, wrapRepositoryError(errorCodeGet, ErrUnknownBook)
	}
	return view.books[index], nil
}

func (view *memoryView) List(_ context.Context) ([]Book, error) {
	return append([]Book(nil), view.books...), nil
}

func (view *memoryView) Update(_ context.Context, book Book) error {
	index, found := view.indexOf(book.ID)
	if !found {
		return wrapRepositoryError(errorCodeUpdate, ErrUnknownBook)
	}
	if book.ISBN != "" {
		for otherIndex, existing := range view.books {
			if otherIndex != index && strings.EqualFold(existing.ISBN, book.ISBN) {
				return wrapRepositoryError(errorCodeDuplicate, ErrDuplicateISBN)
			}
		}
	}
	view.books[index] = book
	return nil
}

func (view *memoryView) Delete(_ context.Context, id BookID) error {
	index, found := view.indexOf(id)
	if !found {
		return wrapRepositoryError(errorCodeDelete, ErrUnknownBook)
	}
	view.books = append(view.books[:index:index], view.books[index+1:]...)
	return nil
}

func (view *memoryView) indexOf(id BookID) (int, bool) {
	for index, book := range view.books {
		if book.ID == id {
			return index, true
		}
	}
	return 0, false
}

func wrapRepositoryError(code string, err error) error {
	return workflow.WrapError(errorOperationRepository, errorSubjectBook, code, err)
}
