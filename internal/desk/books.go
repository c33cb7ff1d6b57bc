package desk

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/catalog"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
)

var metadataCodec = jsoniter.ConfigCompatibleWithStandardLibrary

type bookRequest struct {
	Title    string         `json:"title"`
	Author   string         `json:"author"`
	ISBN     string         `json:"isbn"`
	Year     string         `json:"year"`
	Genre    string         `json:"genre"`
	Borrowed bool           `json:"borrowed"`
	Metadata map[string]any `json:"metadata"`
}

type bookPatchRequest struct {
	Title    *string         `json:"title"`
	Author   *string         `json:"author"`
	ISBN     *string         `json:"isbn"`
	Year     *string         `json:"year"`
	Genre    *string         `json:"genre"`
	Borrowed *bool           `json:"borrowed"`
	Metadata *map[string]any `json:"metadata"`
}

type bookPayload struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Author         string  `json:"author"`
	ISBN           string  `json:"isbn,omitempty"`
	Year           string  `json:"year"`
	Genre          string  `json:"genre"`
	Borrowed       bool    `json:"borrowed"`
	Metadata       rawJSON `json:"metadata"`
	CreatedUnixUTC int64   `json:"created_unix_utc"`
}

// rawJSON embeds an already validated JSON document.
type rawJSON string

func (raw rawJSON) MarshalJSON() ([]byte, error) {
	return []byte(raw), nil
}

func (handler *httpHandler) handleListBooks(ctx *gin.Context) {
	if !handler.requireCatalog(ctx) {
		return
	}
	books, err := handler.books.List(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]bookPayload, 0, len(books))
	for _, book := range books {
		payload = append(payload, toBookPayload(book))
	}
	ctx.JSON(http.StatusOK, gin.H{"books": payload})
}

func (handler *httpHandler) handleAddBook(ctx *gin.Context) {
	if !handler.requireCatalog(ctx) {
		return
	}
	var request bookRequest
	if !bindJSON(ctx, &request) {
		return
	}
	metadata, err := marshalMetadata(request.Metadata)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	book, err := handler.books.Add(ctx.Request.Context(), catalog.BookInput{
		Title:    request.Title,
		Author:   request.Author,
		ISBN:     request.ISBN,
		Year:     request.Year,
		Genre:    request.Genre,
		Borrowed: request.Borrowed,
		Metadata: metadata,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"book": toBookPayload(book), "message": "Book '" + book.Title + "' added successfully!"})
}

func (handler *httpHandler) handleGetBook(ctx *gin.Context) {
	id, ok := handler.bookID(ctx)
	if !ok {
		return
	}
	book, err := handler.books.Get(ctx.Request.Context(), id)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"book": toBookPayload(book)})
}

func (handler *httpHandler) handleEditBook(ctx *gin.Context) {
	id, ok := handler.bookID(ctx)
	if !ok {
		return
	}
	var request bookPatchRequest
	if !bindJSON(ctx, &request) {
		return
	}
	patch := catalog.BookPatch{
		Title:    request.Title,
		Author:   request.Author,
		ISBN:     request.ISBN,
		Year:     request.Year,
		Genre:    request.Genre,
		Borrowed: request.Borrowed,
	}
	if request.Metadata != nil {
		metadata, err := marshalMetadata(*request.Metadata)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		patch.Metadata = &metadata
	}
	book, err := handler.books.Edit(ctx.Request.Context(), id, patch)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"book": toBookPayload(book), "message": "Book updated successfully!"})
}

func (handler *httpHandler) handleDeleteBook(ctx *gin.Context) {
	id, ok := handler.bookID(ctx)
	if !ok {
		return
	}
	if err := handler.books.Delete(ctx.Request.Context(), id); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Book deleted successfully!"})
}

func (handler *httpHandler) handleBorrowBook(ctx *gin.Context) {
	id, ok := handler.bookID(ctx)
	if !ok {
		return
	}
	handler.respondReceipt(ctx, func() (catalog.Receipt, error) {
		return handler.books.Borrow(ctx.Request.Context(), id)
	})
}

func (handler *httpHandler) handleReturnBook(ctx *gin.Context) {
	id, ok := handler.bookID(ctx)
	if !ok {
		return
	}
	handler.respondReceipt(ctx, func() (catalog.Receipt, error) {
		return handler.books.Return(ctx.Request.Context(), id)
	})
}

// respondReceipt answers 200 when the loan state changed and 409 when the
// book was already in the requested state.
func (handler *httpHandler) respondReceipt(ctx *gin.Context, action func() (catalog.Receipt, error)) {
	receipt, err := action()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	status := http.StatusOK
	if !receipt.Changed {
		status = http.StatusConflict
	}
	ctx.JSON(status, gin.H{
		"book":    toBookPayload(receipt.Book),
		"changed": receipt.Changed,
		"message": receipt.Message,
	})
}

func (handler *httpHandler) requireCatalog(ctx *gin.Context) bool {
	if handler.books == nil {
		ctx.JSON(http.StatusNotFound, errorResponse(errorCatalogDisabled, "catalog is not configured"))
		return false
	}
	return true
}

func (handler *httpHandler) bookID(ctx *gin.Context) (catalog.BookID, bool) {
	if !handler.requireCatalog(ctx) {
		return catalog.BookID{}, false
	}
	id, err := catalog.NewBookID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return catalog.BookID{}, false
	}
	return id, true
}

func toBookPayload(book catalog.Book) bookPayload {
	return bookPayload{
		ID:             book.ID.String(),
		Title:          book.Title,
		Author:         book.Author,
		ISBN:           book.ISBN,
		Year:           book.Year,
		Genre:          book.Genre,
		Borrowed:       book.Borrowed,
		Metadata:       rawJSON(book.Metadata.String()),
		CreatedUnixUTC: book.CreatedUnixUTC,
	}
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "", nil
	}
	raw, err := metadataCodec.Marshal(metadata)
	if err != nil {
		return "", catalog.ErrInvalidMetadataJSON
	}
	return string(raw), nil
}
