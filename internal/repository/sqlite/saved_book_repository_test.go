package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf-server/internal/domain"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, NewUserRepository(db).Init(context.Background()))
	require.NoError(t, NewSavedBookRepository(db).Init(context.Background()))
	return db
}

func createUser(t *testing.T, db *sql.DB, id, username, email string) {
	t.Helper()
	err := NewUserRepository(db).Create(context.Background(), &domain.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
}

func TestUserUniqueConstraints(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	createUser(t, db, "u1", "alice", "a@x.com")

	err := users.Create(ctx, &domain.User{ID: "u2", Username: "alice", Email: "b@x.com", PasswordHash: "hash"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	err = users.Create(ctx, &domain.User{ID: "u3", Username: "bob", Email: "a@x.com", PasswordHash: "hash"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAddForUserSetSemantics(t *testing.T) {
	db := setupDB(t)
	books := NewSavedBookRepository(db)
	ctx := context.Background()

	createUser(t, db, "u1", "alice", "a@x.com")

	book := domain.Book{BookID: "b1", Title: "Go", Authors: []string{"Donovan", "Kernighan"}}
	require.NoError(t, books.AddForUser(ctx, "u1", book))
	require.NoError(t, books.AddForUser(ctx, "u1", book))

	saved, err := books.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, []string{"Donovan", "Kernighan"}, saved[0].Authors)
}

func TestAddForUserMissingUser(t *testing.T) {
	db := setupDB(t)
	books := NewSavedBookRepository(db)

	err := books.AddForUser(context.Background(), "missing", domain.Book{BookID: "b1", Title: "Go"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListByUserPreservesInsertionOrder(t *testing.T) {
	db := setupDB(t)
	books := NewSavedBookRepository(db)
	ctx := context.Background()

	createUser(t, db, "u1", "alice", "a@x.com")

	for _, id := range []string{"b3", "b1", "b2"} {
		require.NoError(t, books.AddForUser(ctx, "u1", domain.Book{BookID: id, Title: "t-" + id}))
	}

	saved, err := books.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, "b3", saved[0].BookID)
	assert.Equal(t, "b1", saved[1].BookID)
	assert.Equal(t, "b2", saved[2].BookID)
}

func TestRemoveForUserAbsentIsNoop(t *testing.T) {
	db := setupDB(t)
	books := NewSavedBookRepository(db)
	ctx := context.Background()

	createUser(t, db, "u1", "alice", "a@x.com")
	require.NoError(t, books.RemoveForUser(ctx, "u1", "nothing"))

	saved, err := books.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestConcurrentDuplicateSaves(t *testing.T) {
	db := setupDB(t)
	books := NewSavedBookRepository(db)
	ctx := context.Background()

	createUser(t, db, "u1", "alice", "a@x.com")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = books.AddForUser(ctx, "u1", domain.Book{BookID: "b1", Title: "Go"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	saved, err := books.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}
