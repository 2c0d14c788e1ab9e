package domain

// NoAuthorSentinel is stored when the catalog source provides no author list.
const NoAuthorSentinel = "No author to display"

// Book is a catalog entry saved on a user's shelf. It has no lifecycle of its
// own; the same BookID may appear on many users' shelves independently.
type Book struct {
	BookID      string
	Title       string
	Authors     []string
	Description string
	Image       string
	Link        string
}

// Normalize fills defaulted fields in place. An empty author list becomes the
// single sentinel entry so display code never special-cases missing authors.
func (b *Book) Normalize() {
	if len(b.Authors) == 0 {
		b.Authors = []string{NoAuthorSentinel}
	}
}
