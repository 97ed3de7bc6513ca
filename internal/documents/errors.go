package documents

import "errors"

var (
	ErrNotFound          = errors.New("document not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTitleRequired     = errors.New("title is required")
	ErrFileRequired      = errors.New("file is required")
	ErrFileTooLarge      = errors.New("file exceeds maximum size")
	ErrMissingExternalID = errors.New("document has no external document id")
)
