package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bookshelf-server/internal/domain"
	"bookshelf-server/internal/repository"
)

const createSavedBooksTable = `
CREATE TABLE IF NOT EXISTS saved_books (
	position INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	book_id TEXT NOT NULL,
	title TEXT NOT NULL,
	authors TEXT NOT NULL DEFAULT '[]',
	description TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	link TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	UNIQUE(user_id, book_id),
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_saved_books_user_id ON saved_books(user_id);
`

type SavedBookRepository struct {
	db *sql.DB
}

func NewSavedBookRepository(db *sql.DB) repository.SavedBookRepository {
	return &SavedBookRepository{db: db}
}

func (r *SavedBookRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSavedBooksTable); err != nil {
		return fmt.Errorf("create saved_books table: %w", err)
	}
	return nil
}

// AddForUser is a single conditional insert: the UNIQUE(user_id, book_id)
// constraint plus ON CONFLICT DO NOTHING gives set-add semantics without a
// read-modify-write cycle.
func (r *SavedBookRepository) AddForUser(ctx context.Context, userID string, book domain.Book) error {
	if book.Title == "" {
		return fmt.Errorf("book title is required")
	}

	authors, err := json.Marshal(book.Authors)
	if err != nil {
		return fmt.Errorf("encode authors: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO saved_books (user_id, book_id, title, authors, description, image, link, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, book_id) DO NOTHING`,
		userID,
		book.BookID,
		book.Title,
		string(authors),
		book.Description,
		book.Image,
		book.Link,
		time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			return fmt.Errorf("user not found: %w", err)
		}
		return fmt.Errorf("insert saved book: %w", err)
	}
	return nil
}

func (r *SavedBookRepository) RemoveForUser(ctx context.Context, userID, bookID string) error {
	if _, err := r.db.ExecContext(ctx, `
DELETE FROM saved_books WHERE user_id=? AND book_id=?`,
		userID, bookID,
	); err != nil {
		return fmt.Errorf("delete saved book: %w", err)
	}
	return nil
}

func (r *SavedBookRepository) ListByUser(ctx context.Context, userID string) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT book_id, title, authors, description, image, link
FROM saved_books
WHERE user_id=?
ORDER BY position ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query saved books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		var book domain.Book
		var authors string
		if err := rows.Scan(&book.BookID, &book.Title, &authors, &book.Description, &book.Image, &book.Link); err != nil {
			return nil, fmt.Errorf("scan saved book: %w", err)
		}
		if err := json.Unmarshal([]byte(authors), &book.Authors); err != nil {
			return nil, fmt.Errorf("decode authors: %w", err)
		}
		books = append(books, book)
	}

	return books, rows.Err()
}
