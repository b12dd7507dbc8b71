package domain

import "errors"

var (
	// ErrInvalidContext is returned when a delivery context has no medium or
	// does not name exactly one of board or exam.
	ErrInvalidContext = errors.New("pick a medium and exactly one board or exam")
	// ErrCatalogNotFound indicates the catalog entry must be created first.
	ErrCatalogNotFound = errors.New("catalog entry missing")
	// ErrStoreUnavailable wraps infrastructure failures from the document store.
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrPermissionDenied is returned before any mutation when the caller is not an admin.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDocumentNotFound is a store-level miss.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidCatalogEntry indicates a catalog entry without a usable name.
	ErrInvalidCatalogEntry = errors.New("catalog entry requires a name")
	// ErrInvalidResult indicates a quiz result without a user id.
	ErrInvalidResult = errors.New("quiz result requires a uid")
)
