package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/catalog"
	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintISBN        = "uniq_books_isbn"
	defaultMetadataJSON   = "{}"
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
	sqliteISBNColumn      = "books.isbn"
	errorOperationStore   = "store"
	errorSubjectBook      = "book"
	errorCodeDelete       = "delete"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeInsert       = "insert"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodeUpdate       = "update"
)

// Store implements catalog.Repository using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txRepository catalog.Repository) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) Insert(ctx context.Context, book catalog.Book) error {
	record := toRecord(book)
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var last int64
		if err := transaction.Model(&BookRecord{}).Select("COALESCE(MAX(sequence), 0)").Scan(&last).Error; err != nil {
			return err
		}
		record.Sequence = last + 1
		return transaction.Create(&record).Error
	})
	if isISBNConflict(err) {
		return wrapStoreError(errorCodeDuplicate, catalog.ErrDuplicateISBN)
	}
	if err != nil {
		return wrapStoreError(errorCodeInsert, err)
	}
	return nil
}

func (store *Store) Get(ctx context.Context, id catalog.BookID) (catalog.Book, error) {
	var record BookRecord
	err := store.db.WithContext(ctx).
		Clauses(lockingClause(store.db)...).
		Where("book_id = ?", id.String()).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return catalog.Book{}, wrapStoreError(errorCodeGet, catalog.ErrUnknownBook)
		}
		return catalog.Book{}, wrapStoreError(errorCodeGet, err)
	}
	book, err := mapBookRecord(record)
	if err != nil {
		return catalog.Book{}, wrapStoreError(errorCodeInvalid, err)
	}
	return book, nil
}

func (store *Store) List(ctx context.Context) ([]catalog.Book, error) {
	var records []BookRecord
	err := store.db.WithContext(ctx).
		Order("sequence ASC").
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, wrapStoreError(errorCodeList, err)
	}
	books := make([]catalog.Book, 0, len(records))
	for _, record := range records {
		book, err := mapBookRecord(record)
		if err != nil {
			return nil, wrapStoreError(errorCodeInvalid, err)
		}
		books = append(books, book)
	}
	return books, nil
}

func (store *Store) Update(ctx context.Context, book catalog.Book) error {
	record := toRecord(book)
	result := store.db.WithContext(ctx).
		Model(&BookRecord{}).
		Where("book_id = ?", record.BookID).
		Updates(map[string]interface{}{
			"title":      record.Title,
			"author":     record.Author,
			"isbn":       record.ISBN,
			"year":       record.Year,
			"genre":      record.Genre,
			"borrowed":   record.Borrowed,
			"metadata":   record.Metadata,
			"updated_at": time.Now().UTC(),
		})
	if isISBNConflict(result.Error) {
		return wrapStoreError(errorCodeDuplicate, catalog.ErrDuplicateISBN)
	}
	if result.Error != nil {
		return wrapStoreError(errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorCodeUpdate, catalog.ErrUnknownBook)
	}
	return nil
}

func (store *Store) Delete(ctx context.Context, id catalog.BookID) error {
	result := store.db.WithContext(ctx).
		Where("book_id = ?", id.String()).
		Delete(&BookRecord{})
	if result.Error != nil {
		return wrapStoreError(errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorCodeDelete, catalog.ErrUnknownBook)
	}
	return nil
}

func wrapStoreError(code string, err error) error {
	return workflow.WrapError(errorOperationStore, errorSubjectBook, code, err)
}

// lockingClause adds SELECT ... FOR UPDATE where the dialect supports it.
func lockingClause(db *gorm.DB) []clause.Expression {
	if db.Dialector == nil || db.Dialector.Name() != dialectPostgres {
		return nil
	}
	return []clause.Expression{clause.Locking{Strength: "UPDATE"}}
}

func toRecord(book catalog.Book) BookRecord {
	var isbn *string
	if trimmed := strings.TrimSpace(book.ISBN); trimmed != "" {
		isbn = &trimmed
	}
	createdAt := time.Unix(book.CreatedUnixUTC, 0).UTC()
	if book.CreatedUnixUTC == 0 {
		createdAt = time.Now().UTC()
	}
	return BookRecord{
		BookID:    book.ID.String(),
		Title:     book.Title,
		Author:    book.Author,
		ISBN:      isbn,
		Year:      book.Year,
		Genre:     book.Genre,
		Borrowed:  book.Borrowed,
		Metadata:  datatypesJSON(book.Metadata.String()),
		CreatedAt: createdAt,
	}
}

func mapBookRecord(record BookRecord) (catalog.Book, error) {
	bookID, err := catalog.NewBookID(record.BookID)
	if err != nil {
		return catalog.Book{}, err
	}
	metadata, err := catalog.NewMetadataJSON(string(record.Metadata))
	if err != nil {
		return catalog.Book{}, err
	}
	isbn := ""
	if record.ISBN != nil {
		isbn = *record.ISBN
	}
	return catalog.Book{
		ID:             bookID,
		Title:          record.Title,
		Author:         record.Author,
		ISBN:           isbn,
		Year:           record.Year,
		Genre:          record.Genre,
		Borrowed:       record.Borrowed,
		Metadata:       metadata,
		CreatedUnixUTC: record.CreatedAt.Unix(),
	}, nil
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func isISBNConflict(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintISBN
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode && strings.Contains(sqliteErr.Error(), sqliteISBNColumn)
	}
	return false
}
