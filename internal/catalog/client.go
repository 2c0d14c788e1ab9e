// Package catalog queries the external book catalog (the Google Books
// volumes API) and maps results into domain books.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"bookshelf-server/internal/domain"
)

// ErrSearchFailed wraps any upstream failure; callers surface it as a gateway
// error without leaking provider detail.
var ErrSearchFailed = errors.New("catalog search failed")

type Config struct {
	Endpoint   string
	MaxResults int
	Timeout    time.Duration
}

type Client struct {
	http       *resty.Client
	maxResults int
}

func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://www.googleapis.com/books/v1"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(cfg.Timeout)

	return &Client{
		http:       cli,
		maxResults: cfg.MaxResults,
	}
}

type volumesResponse struct {
	Items []volume `json:"items"`
}

type volume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title       string   `json:"title"`
		Authors     []string `json:"authors"`
		Description string   `json:"description"`
		InfoLink    string   `json:"infoLink"`
		ImageLinks  struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

// Search queries the catalog for the given terms. Volumes without a title are
// skipped; volumes without authors get the sentinel author entry.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrSearchFailed)
	}

	var result volumesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("maxResults", fmt.Sprintf("%d", c.maxResults)).
		SetResult(&result).
		Get("/volumes")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: upstream status %d", ErrSearchFailed, resp.StatusCode())
	}

	books := make([]domain.Book, 0, len(result.Items))
	for _, item := range result.Items {
		if item.VolumeInfo.Title == "" {
			continue
		}
		book := domain.Book{
			BookID:      item.ID,
			Title:       item.VolumeInfo.Title,
			Authors:     item.VolumeInfo.Authors,
			Description: item.VolumeInfo.Description,
			Image:       item.VolumeInfo.ImageLinks.Thumbnail,
			Link:        item.VolumeInfo.InfoLink,
		}
		book.Normalize()
		books = append(books, book)
	}

	return books, nil
}
