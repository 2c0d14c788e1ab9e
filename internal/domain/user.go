package domain

import "time"

// User represents a registered account together with its saved-book shelf.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	SavedBooks   []Book
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BookCount reports how many books are on the user's shelf.
func (u *User) BookCount() int {
	return len(u.SavedBooks)
}

// HasBook reports whether the shelf already holds the given catalog id.
func (u *User) HasBook(bookID string) bool {
	for i := range u.SavedBooks {
		if u.SavedBooks[i].BookID == bookID {
			return true
		}
	}
	return false
}

// Identity is the per-request authenticated principal. A nil *Identity means
// the request carried no valid token; protected operations must reject it
// before touching persistence.
type Identity struct {
	UserID   string
	Username string
}
