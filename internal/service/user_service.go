package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bookshelf-server/internal/domain"
	"bookshelf-server/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that the supplied password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates no user matched the given identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when attempting to register an existing username or email.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserService describes user lifecycle and credential verification operations.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	// Authenticate resolves a user by username or email and verifies the
	// password. It distinguishes ErrUserNotFound from ErrInvalidCredentials
	// for logging only; callers must present both identically.
	Authenticate(ctx context.Context, login, password string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDOrUsername(ctx context.Context, key string) (*domain.User, error)
}

type userService struct {
	users repository.UserRepository
	books repository.SavedBookRepository
}

func NewUserService(users repository.UserRepository, books repository.SavedBookRepository) UserService {
	return &userService{
		users: users,
		books: books,
	}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	if username == "" {
		return nil, errors.New("username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	password = strings.TrimSpace(password)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.withBooks(ctx, user)
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.withBooks(ctx, user)
}

func (s *userService) GetByIDOrUsername(ctx context.Context, key string) (*domain.User, error) {
	user, err := s.users.GetByIDOrUsername(ctx, key)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.withBooks(ctx, user)
}

func (s *userService) withBooks(ctx context.Context, user *domain.User) (*domain.User, error) {
	books, err := s.books.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.SavedBooks = books
	return user, nil
}
