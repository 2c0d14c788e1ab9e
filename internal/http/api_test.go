package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf-server/internal/catalog"
	"bookshelf-server/internal/repository/sqlite"
	"bookshelf-server/internal/service"
)

const testSecret = "test-secret"

func setupRouter(t *testing.T, cat *catalog.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	bookRepo := sqlite.NewSavedBookRepository(db)
	require.NoError(t, userRepo.Init(context.Background()))
	require.NoError(t, bookRepo.Init(context.Background()))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	handler := NewHandler(
		service.NewUserService(userRepo, bookRepo),
		service.NewBookService(userRepo, bookRepo),
		service.NewTokenService(testSecret, time.Hour),
		cat,
		nil,
		logger,
	)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeAuth(t *testing.T, rec *httptest.ResponseRecorder) AuthResponse {
	t.Helper()
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeUser(t *testing.T, rec *httptest.ResponseRecorder) UserResponse {
	t.Helper()
	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func signup(t *testing.T, router *gin.Engine, username, email, password string) AuthResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/users", "", gin.H{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeAuth(t, rec)
}

func TestSignupLoginSaveRemoveScenario(t *testing.T) {
	router := setupRouter(t, nil)

	auth := signup(t, router, "alice", "a@x.com", "secret123")
	require.NotEmpty(t, auth.Token)
	assert.Equal(t, "alice", auth.User.Username)
	assert.Zero(t, auth.User.BookCount)

	rec := doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decodeAuth(t, rec).Token
	require.NotEmpty(t, token)

	book := gin.H{"bookId": "b1", "title": "Go"}

	rec = doJSON(t, router, http.MethodPut, "/api/books", token, book)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decodeUser(t, rec)
	require.Len(t, user.SavedBooks, 1)
	assert.Equal(t, "b1", user.SavedBooks[0].BookID)
	assert.Equal(t, 1, user.BookCount)

	// duplicate save stays a single entry
	rec = doJSON(t, router, http.MethodPut, "/api/books", token, book)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeUser(t, rec).SavedBooks, 1)

	rec = doJSON(t, router, http.MethodDelete, "/api/books/b1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeUser(t, rec).SavedBooks)

	// removing again is a no-op success
	rec = doJSON(t, router, http.MethodDelete, "/api/books/b1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeUser(t, rec).SavedBooks)
}

func TestLoginByEmail(t *testing.T) {
	router := setupRouter(t, nil)
	signup(t, router, "alice", "a@x.com", "secret123")

	rec := doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{
		"email":    "a@x.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", decodeAuth(t, rec).User.Username)
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	router := setupRouter(t, nil)
	signup(t, router, "alice", "a@x.com", "secret123")

	wrongPass := doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{
		"username": "alice",
		"password": "wrongpass",
	})
	unknownUser := doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{
		"username": "mallory",
		"password": "wrongpass",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPass.Body.String(), unknownUser.Body.String())
}

func TestMutationsWithoutToken(t *testing.T) {
	router := setupRouter(t, nil)
	signup(t, router, "alice", "a@x.com", "secret123")

	rec := doJSON(t, router, http.MethodPut, "/api/books", "", gin.H{"bookId": "b1", "title": "Go"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/books/b1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMutationsWithGarbageToken(t *testing.T) {
	router := setupRouter(t, nil)
	signup(t, router, "alice", "a@x.com", "secret123")

	rec := doJSON(t, router, http.MethodPut, "/api/books", "garbage", gin.H{"bookId": "b1", "title": "Go"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMutationsWithExpiredToken(t *testing.T) {
	router := setupRouter(t, nil)
	auth := signup(t, router, "alice", "a@x.com", "secret123")

	// token signed with the right secret but already expired
	expired := service.NewTokenService(testSecret, time.Millisecond)
	token, err := expired.Issue("alice", "hash", auth.User.ID)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	rec := doJSON(t, router, http.MethodPut, "/api/books", token, gin.H{"bookId": "b1", "title": "Go"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetSingleUser(t *testing.T) {
	router := setupRouter(t, nil)
	auth := signup(t, router, "alice", "a@x.com", "secret123")

	rec := doJSON(t, router, http.MethodGet, "/api/users/alice", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.User.ID, decodeUser(t, rec).ID)

	rec = doJSON(t, router, http.MethodGet, "/api/users/"+auth.User.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decodeUser(t, rec).Username)

	rec = doJSON(t, router, http.MethodGet, "/api/users/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMe(t *testing.T) {
	router := setupRouter(t, nil)
	auth := signup(t, router, "alice", "a@x.com", "secret123")

	rec := doJSON(t, router, http.MethodGet, "/api/me", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decodeUser(t, rec).Username)

	rec = doJSON(t, router, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaveBookMissingTitle(t *testing.T) {
	router := setupRouter(t, nil)
	auth := signup(t, router, "alice", "a@x.com", "secret123")

	rec := doJSON(t, router, http.MethodPut, "/api/books", auth.Token, gin.H{"bookId": "b1"})
	// gin binding rejects the payload before the service sees it
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchBooks(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"v1","volumeInfo":{"title":"Go"}}]}`))
	}))
	defer upstream.Close()

	router := setupRouter(t, catalog.NewClient(catalog.Config{Endpoint: upstream.URL}))

	rec := doJSON(t, router, http.MethodGet, "/api/books/search?q=go", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var books []BookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "v1", books[0].BookID)

	rec = doJSON(t, router, http.MethodGet, "/api/books/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
