package catalog

import "errors"

var (
	ErrInvalidBookID        = errors.New("invalid book id")
	ErrInvalidTitle         = errors.New("invalid title")
	ErrInvalidAuthor        = errors.New("invalid author")
	ErrInvalidMetadataJSON  = errors.New("invalid metadata json")
	ErrInvalidServiceConfig = errors.New("invalid service config")
	ErrUnknownBook          = errors.New("unknown book")
	ErrDuplicateISBN        = errors.New("duplicate isbn")
)
