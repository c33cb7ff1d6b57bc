package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(test *testing.T) (*Service, *MemoryRepository) {
	test.Helper()
	repository := NewMemoryRepository()
	service, err := NewService(repository, func() int64 { return 1700000000 })
	require.NoError(test, err)
	return service, repository
}

func stringPointer(value string) *string {
	return &value
}

func TestNewServiceValidatesDependencies(test *testing.T) {
	test.Parallel()
	_, err := NewService(nil, func() int64 { return 0 })
	assert.True(test, errors.Is(err, ErrInvalidServiceConfig))
	_, err = NewService(NewMemoryRepository(), nil)
	assert.True(test, errors.Is(err, ErrInvalidServiceConfig))
}

func TestAddValidatesInput(test *testing.T) {
	test.Parallel()
	service, _ := newTestService(test)
	testCases := []struct {
		name    string
		input   BookInput
		wantErr error
	}{
		{name: "missing title", input: BookInput{Author: "A"}, wantErr: ErrInvalidTitle},
		{name: "missing author", input: BookInput{Title: "T"}, wantErr: ErrInvalidAuthor},
		{name: "bad metadata", input: BookInput{Title: "T", Author: "A", Metadata: "{"}, wantErr: ErrInvalidMetadataJSON},
	}
	for _, testCase := range testCases {
		_, err := service.Add(context.Background(), testCase.input)
		assert.True(test, errors.Is(err, testCase.wantErr), "%s: got %v", testCase.name, err)
	}
}

func TestAddListGetEditDelete(test *testing.T) {
	test.Parallel()
	service, _ := newTestService(test)
	ctx := context.Background()

	first, err := service.Add(ctx, BookInput{Title: " 1984 ", Author: "George Orwell", ISBN: "978-0-452-28423-4", Year: "1949"})
	require.NoError(test, err)
	assert.Equal(test, "1984", first.Title)
	assert.Equal(test, "{}", first.Metadata.String())
	second, err := service.Add(ctx, BookInput{Title: "Moby-Dick", Author: "Herman Melville"})
	require.NoError(test, err)

	books, err := service.List(ctx)
	require.NoError(test, err)
	require.Len(test, books, 2)
	assert.Equal(test, first.ID, books[0].ID)

	edited, err := service.Edit(ctx, second.ID, BookPatch{Genre: stringPointer("Adventure"), Metadata: stringPointer(`{"shelf":"B2"}`)})
	require.NoError(test, err)
	assert.Equal(test, "Adventure", edited.Genre)
	assert.Equal(test, "Herman Melville", edited.Author)
	fetched, err := service.Get(ctx, second.ID)
	require.NoError(test, err)
	assert.Equal(test, `{"shelf":"B2"}`, fetched.Metadata.String())

	_, err = service.Edit(ctx, second.ID, BookPatch{Title: stringPointer(" ")})
	assert.True(test, errors.Is(err, ErrInvalidTitle))

	require.NoError(test, service.Delete(ctx, first.ID))
	_, err = service.Get(ctx, first.ID)
	assert.True(test, errors.Is(err, ErrUnknownBook))
	assert.True(test, errors.Is(service.Delete(ctx, first.ID), ErrUnknownBook))
}

func TestAddRejectsDuplicateISBN(test *testing.T) {
	test.Parallel()
	service, _ := newTestService(test)
	_, err := service.Add(context.Background(), BookInput{Title: "A", Author: "B", ISBN: "1"})
	require.NoError(test, err)
	_, err = service.Add(context.Background(), BookInput{Title: "C", Author: "D", ISBN: "1"})
	assert.True(test, errors.Is(err, ErrDuplicateISBN))
}

func TestBorrowAndReturnMessages(test *testing.T) {
	test.Parallel()
	service, repository := newTestService(test)
	ctx := context.Background()
	book, err := service.Add(ctx, BookInput{Title: "1984", Author: "George Orwell"})
	require.NoError(test, err)

	steps := []struct {
		action      func(context.Context, BookID) (Receipt, error)
		wantMessage string
		wantChanged bool
		wantState   bool
	}{
		{action: service.Return, wantMessage: "1984 by George Orwell is already available.", wantState: false},
		{action: service.Borrow, wantMessage: "1984 by George Orwell has been borrowed.", wantChanged: true, wantState: true},
		{action: service.Borrow, wantMessage: "1984 by George Orwell is not available.", wantState: true},
		{action: service.Return, wantMessage: "1984 by George Orwell has been returned.", wantChanged: true, wantState: false},
	}
	for index, step := range steps {
		receipt, err := step.action(ctx, book.ID)
		require.NoError(test, err, "step %d", index)
		assert.Equal(test, step.wantMessage, receipt.Message, "step %d", index)
		assert.Equal(test, step.wantChanged, receipt.Changed, "step %d", index)
		assert.Equal(test, step.wantState, repository.Books()[0].Borrowed, "step %d", index)
	}

	_, err = service.Borrow(ctx, NewRandomBookID())
	assert.True(test, errors.Is(err, ErrUnknownBook))
}

func TestSeedOnlyFillsEmptyCatalog(test *testing.T) {
	test.Parallel()
	service, _ := newTestService(test)
	inputs := []BookInput{{Title: "A", Author: "B"}, {Title: "C", Author: "D"}}

	added, err := service.Seed(context.Background(), inputs)
	require.NoError(test, err)
	assert.Equal(test, 2, added)

	added, err = service.Seed(context.Background(), inputs)
	require.NoError(test, err)
	assert.Equal(test, 0, added)
}

func TestSeedIsAllOrNothing(test *testing.T) {
	test.Parallel()
	service, repository := newTestService(test)
	_, err := service.Seed(context.Background(), []BookInput{{Title: "A", Author: "B"}, {Title: "", Author: "D"}})
	assert.True(test, errors.Is(err, ErrInvalidTitle))
	assert.Empty(test, repository.Books())
}

func TestNewBookIDValidates(test *testing.T) {
	test.Parallel()
	_, err := NewBookID("not-a-uuid")
	assert.True(test, errors.Is(err, ErrInvalidBookID))
	id := NewRandomBookID()
	parsed, err := NewBookID(id.String())
	require.NoError(test, err)
	assert.Equal(test, id, parsed)
}
