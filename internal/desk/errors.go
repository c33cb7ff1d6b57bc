package desk

import (
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/catalog"
	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"github.com/gin-gonic/gin"
)

const (
	errorInvalidPayload    = "invalid_payload"
	errorInvalidResourceID = "invalid_resource_id"
	errorInvalidQuantity   = "invalid_quantity"
	errorInvalidUsername   = "invalid_username"
	errorInvalidRequest    = "invalid_request"
	errorInvalidBookID     = "invalid_book_id"
	errorInvalidBook       = "invalid_book"
	errorInvalidMetadata   = "invalid_metadata_json"
	errorUnknownBook       = "unknown_book"
	errorDuplicateISBN     = "duplicate_isbn"
	errorCatalogDisabled   = "catalog_disabled"
	errorPipeline          = "pipeline_error"
	errorSession           = "session_error"
	errorUnauthorized      = "unauthorized"
	errorInternal          = "internal_error"
)

// mapError translates validation and repository errors into an HTTP status and code.
func mapError(source error) (int, string) {
	switch {
	case errors.Is(source, workflow.ErrInvalidResourceID):
		return http.StatusBadRequest, errorInvalidResourceID
	case errors.Is(source, workflow.ErrInvalidQuantity):
		return http.StatusBadRequest, errorInvalidQuantity
	case errors.Is(source, workflow.ErrInvalidUsername):
		return http.StatusBadRequest, errorInvalidUsername
	case errors.Is(source, workflow.ErrInvalidRequest):
		return http.StatusBadRequest, errorInvalidRequest
	case errors.Is(source, catalog.ErrInvalidBookID):
		return http.StatusBadRequest, errorInvalidBookID
	case errors.Is(source, catalog.ErrInvalidTitle), errors.Is(source, catalog.ErrInvalidAuthor):
		return http.StatusBadRequest, errorInvalidBook
	case errors.Is(source, catalog.ErrInvalidMetadataJSON):
		return http.StatusBadRequest, errorInvalidMetadata
	case errors.Is(source, catalog.ErrUnknownBook):
		return http.StatusNotFound, errorUnknownBook
	case errors.Is(source, catalog.ErrDuplicateISBN):
		return http.StatusConflict, errorDuplicateISBN
	default:
		return http.StatusInternalServerError, errorInternal
	}
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
