package service

import (
	"context"
	"errors"
	"strings"

	"bookshelf-server/internal/domain"
	"bookshelf-server/internal/repository"
)

var (
	// ErrNotLoggedIn is returned when a protected operation runs without an identity.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrInvalidBook indicates the submitted book is missing required fields.
	ErrInvalidBook = errors.New("invalid book")
)

// BookService applies set-semantics mutations to a user's shelf. Both
// operations demand an explicit identity argument; there is no ambient
// current-user state.
type BookService interface {
	SaveBook(ctx context.Context, identity *domain.Identity, book domain.Book) (*domain.User, error)
	RemoveBook(ctx context.Context, identity *domain.Identity, bookID string) (*domain.User, error)
}

type bookService struct {
	users repository.UserRepository
	books repository.SavedBookRepository
}

func NewBookService(users repository.UserRepository, books repository.SavedBookRepository) BookService {
	return &bookService{
		users: users,
		books: books,
	}
}

// SaveBook adds the book to the identified user's shelf. Saving an id that is
// already present is a no-op; the post-mutation user is returned either way.
func (s *bookService) SaveBook(ctx context.Context, identity *domain.Identity, book domain.Book) (*domain.User, error) {
	if identity == nil {
		return nil, ErrNotLoggedIn
	}

	book.BookID = strings.TrimSpace(book.BookID)
	book.Title = strings.TrimSpace(book.Title)
	if book.BookID == "" || book.Title == "" {
		return nil, ErrInvalidBook
	}
	book.Normalize()

	if err := s.books.AddForUser(ctx, identity.UserID, book); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.refresh(ctx, identity.UserID)
}

// RemoveBook deletes every shelf entry matching bookID. An absent id is a
// no-op success; only a missing user record is an error.
func (s *bookService) RemoveBook(ctx context.Context, identity *domain.Identity, bookID string) (*domain.User, error) {
	if identity == nil {
		return nil, ErrNotLoggedIn
	}

	if err := s.books.RemoveForUser(ctx, identity.UserID, bookID); err != nil {
		return nil, err
	}

	return s.refresh(ctx, identity.UserID)
}

func (s *bookService) refresh(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	books, err := s.books.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.SavedBooks = books
	return user, nil
}
