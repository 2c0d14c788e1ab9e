package repository

import (
	"context"

	"bookshelf-server/internal/domain"
)

// SavedBookRepository defines persistence operations for the per-user shelf.
// Add and Remove must be single conditional statements against the store so
// that concurrent mutations of the same shelf serialize without lost updates.
type SavedBookRepository interface {
	Init(ctx context.Context) error
	// AddForUser inserts the book on the user's shelf if absent. A duplicate
	// book id is a no-op; a missing user is an error.
	AddForUser(ctx context.Context, userID string, book domain.Book) error
	// RemoveForUser deletes every shelf entry matching bookID. Removing an
	// absent id is a no-op.
	RemoveForUser(ctx context.Context, userID, bookID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Book, error)
}
