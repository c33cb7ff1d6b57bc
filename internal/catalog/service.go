// Package catalog manages the library's book catalog. It is not part of the
// reservation pipelines; loans of physical copies are tracked here while the
// member borrow counters live in the workflow resource store.
package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	borrowedTemplate         = "%s by %s has been borrowed."
	notAvailableTemplate     = "%s by %s is not available."
	returnedTemplate         = "%s by %s has been returned."
	alreadyAvailableTemplate = "%s by %s is already available."
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger wires a zap logger for catalog mutations.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(service *Service) {
		if logger != nil {
			service.logger = logger
		}
	}
}

// WithIDGenerator replaces the random id generator.
func WithIDGenerator(generate func() BookID) ServiceOption {
	return func(service *Service) {
		if generate != nil {
			service.newID = generate
		}
	}
}

// Service contains the catalog rules over a Repository.
type Service struct {
	repository Repository
	nowFn      func() int64
	newID      func() BookID
	logger     *zap.Logger
}

// NewService wires a Service.
func NewService(repository Repository, now func() int64, options ...ServiceOption) (*Service, error) {
	if repository == nil {
		return nil, fmt.Errorf("%w: repository dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		repository: repository,
		nowFn:      now,
		newID:      NewRandomBookID,
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Add inserts a new book.
func (service *Service) Add(ctx context.Context, input BookInput) (Book, error) {
	book, err := newBook(service.newID(), input, service.nowFn())
	if err != nil {
		return Book{}, err
	}
	if err := service.repository.Insert(ctx, book); err != nil {
		return Book{}, err
	}
	service.logger.Info("book added", zap.String("book_id", book.ID.String()), zap.String("title", book.Title))
	return book, nil
}

// Seed adds inputs when the catalog is empty and reports how many were added.
func (service *Service) Seed(ctx context.Context, inputs []BookInput) (int, error) {
	added := 0
	err := service.repository.WithTx(ctx, func(ctx context.Context, txRepository Repository) error {
		existing, err := txRepository.List(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		createdUnixUTC := service.nowFn()
		for _, input := range inputs {
			book, err := newBook(service.newID(), input, createdUnixUTC)
			if err != nil {
				return err
			}
			if err := txRepository.Insert(ctx, book); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// List returns every book in insertion order.
func (service *Service) List(ctx context.Context) ([]Book, error) {
	return service.repository.List(ctx)
}

// Get returns one book.
func (service *Service) Get(ctx context.Context, id BookID) (Book, error) {
	return service.repository.Get(ctx, id)
}

// Edit applies patch to a book.
func (service *Service) Edit(ctx context.Context, id BookID, patch BookPatch) (Book, error) {
	var updated Book
	err := service.repository.WithTx(ctx, func(ctx context.Context, txRepository Repository) error {
		current, err := txRepository.Get(ctx, id)
		if err != nil {
			return err
		}
		updated, err = patch.apply(current)
		if err != nil {
			return err
		}
		return txRepository.Update(ctx, updated)
	})
	if err != nil {
		return Book{}, err
	}
	service.logger.Info("book updated", zap.String("book_id", id.String()))
	return updated, nil
}

// Delete removes a book.
func (service *Service) Delete(ctx context.Context, id BookID) error {
	if err := service.repository.Delete(ctx, id); err != nil {
		return err
	}
	service.logger.Info("book deleted", zap.String("book_id", id.String()))
	return nil
}

// Borrow marks a book as lent out.
func (service *Service) Borrow(ctx context.Context, id BookID) (Receipt, error) {
	return service.setBorrowed(ctx, id, true)
}

// Return marks a book as available again.
func (service *Service) Return(ctx context.Context, id BookID) (Receipt, error) {
	return service.setBorrowed(ctx, id, false)
}

func (service *Service) setBorrowed(ctx context.Context, id BookID, borrowed bool) (Receipt, error) {
	var receipt Receipt
	err := service.repository.WithTx(ctx, func(ctx context.Context, txRepository Repository) error {
		book, err := txRepository.Get(ctx, id)
		if err != nil {
			return err
		}
		receipt = Receipt{Book: book}
		if book.Borrowed == borrowed {
			receipt.Message = unchangedMessage(book)
			return nil
		}
		book.Borrowed = borrowed
		if err := txRepository.Update(ctx, book); err != nil {
			return err
		}
		receipt.Book = book
		receipt.Changed = true
		receipt.Message = changedMessage(book)
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	service.logger.Info("book loan state",
		zap.String("book_id", id.String()),
		zap.Bool("borrowed", receipt.Book.Borrowed),
		zap.Bool("changed", receipt.Changed),
	)
	return receipt, nil
}

func changedMessage(book Book) string {
	if book.Borrowed {
		return fmt.Sprintf(borrowedTemplate, book.Title, book.Author)
	}
	return fmt.Sprintf(returnedTemplate, book.Title, book.Author)
}

func unchangedMessage(book Book) string {
	if book.Borrowed {
		return fmt.Sprintf(notAvailableTemplate, book.Title, book.Author)
	}
	return fmt.Sprintf(alreadyAvailableTemplate, book.Title, book.Author)
}
