package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookshelf-server/internal/catalog"
	"bookshelf-server/internal/covers"
	"bookshelf-server/internal/domain"
	"bookshelf-server/internal/service"
)

// Stable user-facing failure messages. Raw storage or provider error text is
// never echoed back; the login message is identical for unknown-user and
// wrong-password so responses cannot be used for account enumeration.
const (
	msgLoginFailed  = "Incorrect username/email or password"
	msgNotLoggedIn  = "You need to be logged in!"
	msgUserNotFound = "Cannot find a user with this id or username!"
	msgSaveFailed   = "Error saving book"
	msgSearchFailed = "Error searching the book catalog"
	msgInternal     = "Something went wrong!"
	msgRemoveNoUser = "Couldn't find user with this id!"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	books   service.BookService
	tokens  service.TokenService
	catalog *catalog.Client
	covers  covers.Manager
	logger  *logrus.Logger
}

func NewHandler(users service.UserService, books service.BookService, tokens service.TokenService, cat *catalog.Client, coverMirror covers.Manager, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:   users,
		books:   books,
		tokens:  tokens,
		catalog: cat,
		covers:  coverMirror,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(h.identityMiddleware())

	api := router.Group("/api")
	{
		api.POST("/users", h.addUser)
		api.POST("/login", h.login)
		api.GET("/users/:idOrUsername", h.getSingleUser)
		api.GET("/me", h.me)
		api.PUT("/books", h.saveBook)
		api.DELETE("/books/:bookId", h.removeBook)
		api.GET("/books/search", h.searchBooks)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type addUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type saveBookRequest struct {
	BookID      string   `json:"bookId" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Link        string   `json:"link"`
}

func (h *Handler) addUser(c *gin.Context) {
	var req addUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.logger.Warnf("add user %q: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	token, err := h.tokens.Issue(user.Username, user.PasswordHash, user.ID)
	if err != nil {
		h.logger.Errorf("issue token for %q: %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.JSON(http.StatusOK, authToResponse(token, user))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}

	user, err := h.users.Authenticate(c.Request.Context(), login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			// unknown user and wrong password diverge only in the log line
			h.logger.Infof("login %q: unknown user", login)
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgLoginFailed})
		case errors.Is(err, service.ErrInvalidCredentials):
			h.logger.Infof("login %q: wrong password", login)
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgLoginFailed})
		default:
			h.logger.Errorf("login %q: %v", login, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		}
		return
	}

	token, err := h.tokens.Issue(user.Username, user.PasswordHash, user.ID)
	if err != nil {
		h.logger.Errorf("issue token for %q: %v", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.JSON(http.StatusOK, authToResponse(token, user))
}

func (h *Handler) getSingleUser(c *gin.Context) {
	key := c.Param("idOrUsername")

	user, err := h.users.GetByIDOrUsername(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": msgUserNotFound})
			return
		}
		h.logger.Errorf("get user %q: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) me(c *gin.Context) {
	identity := identityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgNotLoggedIn})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": msgUserNotFound})
			return
		}
		h.logger.Errorf("get me %q: %v", identity.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) saveBook(c *gin.Context) {
	// identity first: an unauthenticated request is rejected the same way no
	// matter what the payload looks like
	identity := identityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgNotLoggedIn})
		return
	}

	var req saveBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book := domain.Book{
		BookID:      req.BookID,
		Title:       req.Title,
		Authors:     req.Authors,
		Description: req.Description,
		Image:       req.Image,
		Link:        req.Link,
	}

	user, err := h.books.SaveBook(c.Request.Context(), identity, book)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotLoggedIn):
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgNotLoggedIn})
		case errors.Is(err, service.ErrInvalidBook), errors.Is(err, service.ErrUserNotFound):
			h.logger.Warnf("save book %q: %v", req.BookID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgSaveFailed})
		default:
			h.logger.Errorf("save book %q: %v", req.BookID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgSaveFailed})
		}
		return
	}

	if h.covers != nil {
		h.covers.Mirror(user.ID, book)
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) removeBook(c *gin.Context) {
	bookID := c.Param("bookId")

	identity := identityFrom(c)
	user, err := h.books.RemoveBook(c.Request.Context(), identity, bookID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotLoggedIn):
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgNotLoggedIn})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": msgRemoveNoUser})
		default:
			h.logger.Errorf("remove book %q: %v", bookID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		}
		return
	}

	if h.covers != nil {
		h.covers.Remove(user.ID, bookID)
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) searchBooks(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog not configured"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	books, err := h.catalog.Search(c.Request.Context(), query)
	if err != nil {
		h.logger.Warnf("catalog search %q: %v", query, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": msgSearchFailed})
		return
	}

	resp := make([]BookResponse, len(books))
	for i := range books {
		resp[i] = bookToResponse(books[i])
	}
	c.JSON(http.StatusOK, resp)
}

type UserResponse struct {
	ID         string         `json:"id"`
	Username   string         `json:"username"`
	Email      string         `json:"email"`
	BookCount  int            `json:"bookCount"`
	SavedBooks []BookResponse `json:"savedBooks"`
}

type BookResponse struct {
	BookID      string   `json:"bookId"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Link        string   `json:"link,omitempty"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func userToResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		BookCount:  user.BookCount(),
		SavedBooks: make([]BookResponse, len(user.SavedBooks)),
	}
	for i := range user.SavedBooks {
		resp.SavedBooks[i] = bookToResponse(user.SavedBooks[i])
	}
	return resp
}

func bookToResponse(book domain.Book) BookResponse {
	return BookResponse{
		BookID:      book.BookID,
		Title:       book.Title,
		Authors:     book.Authors,
		Description: book.Description,
		Image:       book.Image,
		Link:        book.Link,
	}
}

func authToResponse(token string, user *domain.User) AuthResponse {
	return AuthResponse{
		Token: token,
		User:  userToResponse(user),
	}
}
