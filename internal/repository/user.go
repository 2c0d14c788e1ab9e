package repository

import (
	"context"

	"bookshelf-server/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	// GetByLogin resolves a user whose username or email equals login.
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDOrUsername(ctx context.Context, key string) (*domain.User, error)
}
