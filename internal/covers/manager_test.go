package covers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf-server/internal/domain"
	"bookshelf-server/internal/storage"
)

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) PutObject(_ context.Context, _, key, _ string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	return nil
}

func (f *fakeStorage) ListObjects(_ context.Context, _, prefix string) ([]storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var infos []storage.ObjectInfo
	for key, body := range f.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, storage.ObjectInfo{Key: key, Size: int64(len(body))})
		}
	}
	return infos, nil
}

func (f *fakeStorage) DeletePrefix(_ context.Context, _, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			delete(f.objects, key)
		}
	}
	return nil
}

func (f *fakeStorage) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	return keys
}

func TestMirrorAndRemove(t *testing.T) {
	img := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer img.Close()

	store := newFakeStorage()
	m := NewManager(Config{Bucket: "covers-bucket", KeyPrefix: "covers"}, store)
	require.NoError(t, m.Start(context.Background()))

	m.Mirror("u1", domain.Book{BookID: "b1", Title: "Go", Image: img.URL + "/b1.jpg"})
	m.Shutdown() // waits for in-flight jobs

	require.Equal(t, []string{"covers/u1/b1"}, store.keys())

	m2 := NewManager(Config{Bucket: "covers-bucket", KeyPrefix: "covers"}, store)
	require.NoError(t, m2.Start(context.Background()))
	m2.Remove("u1", "b1")
	m2.Shutdown()

	assert.Empty(t, store.keys())
}

func TestMirrorSkipsBooksWithoutImage(t *testing.T) {
	store := newFakeStorage()
	m := NewManager(Config{Bucket: "covers-bucket"}, store)
	require.NoError(t, m.Start(context.Background()))

	m.Mirror("u1", domain.Book{BookID: "b1", Title: "Go"})
	m.Shutdown()

	assert.Empty(t, store.keys())
}

func TestStartRequiresBucket(t *testing.T) {
	m := NewManager(Config{}, newFakeStorage())
	assert.Error(t, m.Start(context.Background()))
}
