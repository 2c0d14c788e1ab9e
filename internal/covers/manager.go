// Package covers mirrors saved-book cover images into object storage in the
// background. Mirroring is best-effort: failures are logged and never
// propagate to the request that triggered them.
package covers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"bookshelf-server/internal/domain"
	"bookshelf-server/internal/storage"
)

// Manager coordinates cover mirror and cleanup jobs.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Mirror(userID string, book domain.Book)
	Remove(userID, bookID string)
}

type Config struct {
	Bucket        string
	KeyPrefix     string
	MaxConcurrent int
	FetchTimeout  time.Duration
	Logger        *logrus.Logger
}

type manager struct {
	cfg     Config
	storage storage.Service
	fetcher *resty.Client

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(cfg Config, store storage.Service) Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:     cfg,
		storage: store,
		fetcher: resty.New().SetTimeout(cfg.FetchTimeout),
		sem:     make(chan struct{}, cfg.MaxConcurrent),
	}
}

func (m *manager) Start(ctx context.Context) error {
	if m.cfg.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.cfg.Logger.Infof("cover mirror started, bucket: %s", m.cfg.Bucket)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("cover mirror stopped")
}

// Mirror schedules a copy of the book's cover image under
// <prefix>/<userID>/<bookID>. Books without an image are skipped.
func (m *manager) Mirror(userID string, book domain.Book) {
	if book.Image == "" {
		return
	}
	m.spawn(func(ctx context.Context) {
		m.mirrorCover(ctx, userID, book)
	})
}

// Remove schedules deletion of any mirrored objects for the book.
func (m *manager) Remove(userID, bookID string) {
	m.spawn(func(ctx context.Context) {
		logger := m.cfg.Logger.WithField("book_id", bookID)
		if err := m.storage.DeletePrefix(ctx, m.cfg.Bucket, m.objectKey(userID, bookID)); err != nil {
			logger.Warnf("delete mirrored cover: %v", err)
		}
	})
}

func (m *manager) spawn(job func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-m.ctx.Done():
			return
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
			job(m.ctx)
		}
	}()
}

func (m *manager) mirrorCover(ctx context.Context, userID string, book domain.Book) {
	logger := m.cfg.Logger.WithField("book_id", book.BookID)

	resp, err := m.fetcher.R().SetContext(ctx).Get(book.Image)
	if err != nil {
		logger.Warnf("fetch cover: %v", err)
		return
	}
	if resp.IsError() {
		logger.Warnf("fetch cover: upstream status %d", resp.StatusCode())
		return
	}

	key := m.objectKey(userID, book.BookID)
	contentType := resp.Header().Get("Content-Type")
	if err := m.storage.PutObject(ctx, m.cfg.Bucket, key, contentType, resp.Body()); err != nil {
		logger.Warnf("store cover: %v", err)
		return
	}

	logger.Debugf("cover mirrored to %s", key)
}

func (m *manager) objectKey(userID, bookID string) string {
	prefix := strings.Trim(m.cfg.KeyPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s", userID, bookID)
	}
	return fmt.Sprintf("%s/%s/%s", prefix, userID, bookID)
}

var _ Manager = (*manager)(nil)
