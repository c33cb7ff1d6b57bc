package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

const defaultMetadataJSON = "{}"

// BookID identifies a catalog entry.
type BookID struct {
	value string
}

// NewBookID validates a uuid string.
func NewBookID(raw string) (BookID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return BookID{}, fmt.Errorf("%w: %v", ErrInvalidBookID, err)
	}
	return BookID{value: parsed.String()}, nil
}

// NewRandomBookID returns a fresh id.
func NewRandomBookID() BookID {
	return BookID{value: uuid.NewString()}
}

func (id BookID) String() string {
	return id.value
}

// IsZero reports whether the id is unset.
func (id BookID) IsZero() bool {
	return id.value == ""
}

// MetadataJSON is a validated JSON document attached to a book.
type MetadataJSON struct {
	value string
}

// NewMetadataJSON validates raw. Empty input becomes "{}".
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return MetadataJSON{value: defaultMetadataJSON}, nil
	}
	if !jsoniter.ConfigFastest.Valid([]byte(trimmed)) {
		return MetadataJSON{}, fmt.Errorf("%w: not valid JSON", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: trimmed}, nil
}

func (metadata MetadataJSON) String() string {
	if metadata.value == "" {
		return defaultMetadataJSON
	}
	return metadata.value
}

// Book is a catalog entry.
type Book struct {
	ID             BookID
	Title          string
	Author         string
	ISBN           string
	Year           string
	Genre          string
	Borrowed       bool
	Metadata       MetadataJSON
	CreatedUnixUTC int64
}

// BookInput carries the fields of a new book.
type BookInput struct {
	Title    string
	Author   string
	ISBN     string
	Year     string
	Genre    string
	Borrowed bool
	Metadata string
}

// BookPatch edits any subset of a book's fields. Nil fields are left alone.
type BookPatch struct {
	Title    *string
	Author   *string
	ISBN     *string
	Year     *string
	Genre    *string
	Borrowed *bool
	Metadata *string
}

func newBook(id BookID, input BookInput, createdUnixUTC int64) (Book, error) {
	if id.IsZero() {
		return Book{}, fmt.Errorf("%w: empty value", ErrInvalidBookID)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Book{}, fmt.Errorf("%w: empty value", ErrInvalidTitle)
	}
	author := strings.TrimSpace(input.Author)
	if author == "" {
		return Book{}, fmt.Errorf("%w: empty value", ErrInvalidAuthor)
	}
	metadata, err := NewMetadataJSON(input.Metadata)
	if err != nil {
		return Book{}, err
	}
	return Book{
		ID:             id,
		Title:          title,
		Author:         author,
		ISBN:           strings.TrimSpace(input.ISBN),
		Year:           strings.TrimSpace(input.Year),
		Genre:          strings.TrimSpace(input.Genre),
		Borrowed:       input.Borrowed,
		Metadata:       metadata,
		CreatedUnixUTC: createdUnixUTC,
	}, nil
}

// apply returns book with patch applied, revalidated.
func (patch BookPatch) apply(book Book) (Book, error) {
	input := BookInput{
		Title:    book.Title,
		Author:   book.Author,
		ISBN:     book.ISBN,
		Year:     book.Year,
		Genre:    book.Genre,
		Borrowed: book.Borrowed,
		Metadata: book.Metadata.String(),
	}
	if patch.Title != nil {
		input.Title = *patch.Title
	}
	if patch.Author != nil {
		input.Author = *patch.Author
	}
	if patch.ISBN != nil {
		input.ISBN = *patch.ISBN
	}
	if patch.Year != nil {
		input.Year = *patch.Year
	}
	if patch.Genre != nil {
		input.Genre = *patch.Genre
	}
	if patch.Borrowed != nil {
		input.Borrowed = *patch.Borrowed
	}
	if patch.Metadata != nil {
		input.Metadata = *patch.Metadata
	}
	return newBook(book.ID, input, book.CreatedUnixUTC)
}

// Repository persists books.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txRepository Repository) error) error
	Insert(ctx context.Context, book Book) error
	Get(ctx context.Context, id BookID) (Book, error)
	List(ctx context.Context) ([]Book, error)
	Update(ctx context.Context, book Book) error
	Delete(ctx context.Context, id BookID) error
}

// Receipt is the result of a borrow or return request. Changed is false when
// the book was already in the requested state; Message says so either way.
type Receipt struct {
	Book    Book
	Changed bool
	Message string
}
