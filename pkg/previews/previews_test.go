package previews_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/previews"
	"github.com/JaimeStill/lectern/pkg/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	types     map[string]string
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) Start(lc *lifecycle.Coordinator) error { return nil }

func (f *fakeStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStore) Download(ctx context.Context, key string) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentType:   f.types[key],
		ContentLength: int64(len(data)),
	}, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(f.blobs, key)
	return nil
}

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[key]
	return ok, nil
}

func pools(t *testing.T) map[string]func() (previews.Pool, *fakeStore) {
	t.Helper()
	return map[string]func() (previews.Pool, *fakeStore){
		"memory": func() (previews.Pool, *fakeStore) {
			return previews.NewMemory(discardLogger()), nil
		},
		"blob": func() (previews.Pool, *fakeStore) {
			store := newFakeStore()
			return previews.NewBlob(store, discardLogger()), store
		},
	}
}

func TestCreateOpenRevoke(t *testing.T) {
	ctx := context.Background()

	for name, build := range pools(t) {
		t.Run(name, func(t *testing.T) {
			pool, _ := build()

			h, err := pool.Create(ctx, []byte("pixels"), "image/png")
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if h == "" {
				t.Fatal("Create() returned empty handle")
			}
			if got := pool.Outstanding(); got != 1 {
				t.Errorf("Outstanding() = %d, want 1", got)
			}

			p, err := pool.Open(ctx, h)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			data, _ := io.ReadAll(p.Body)
			p.Body.Close()
			if string(data) != "pixels" {
				t.Errorf("preview body = %q, want pixels", data)
			}
			if p.ContentType != "image/png" {
				t.Errorf("content type = %q, want image/png", p.ContentType)
			}

			if err := pool.Revoke(ctx, h); err != nil {
				t.Fatalf("Revoke() error = %v", err)
			}
			if got := pool.Outstanding(); got != 0 {
				t.Errorf("Outstanding() after revoke = %d, want 0", got)
			}
			if _, err := pool.Open(ctx, h); !errors.Is(err, previews.ErrUnknownHandle) {
				t.Errorf("Open() after revoke error = %v, want ErrUnknownHandle", err)
			}
			if err := pool.Revoke(ctx, h); !errors.Is(err, previews.ErrUnknownHandle) {
				t.Errorf("second Revoke() error = %v, want ErrUnknownHandle", err)
			}
		})
	}
}

func TestHandlesAreDistinct(t *testing.T) {
	ctx := context.Background()

	for name, build := range pools(t) {
		t.Run(name, func(t *testing.T) {
			pool, _ := build()
			seen := map[previews.Handle]bool{}
			for range 20 {
				h, err := pool.Create(ctx, []byte("x"), "image/png")
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				if seen[h] {
					t.Fatalf("duplicate handle %s", h)
				}
				seen[h] = true
			}
		})
	}
}

func TestUnknownHandle(t *testing.T) {
	ctx := context.Background()

	for name, build := range pools(t) {
		t.Run(name, func(t *testing.T) {
			pool, _ := build()
			for _, h := range []previews.Handle{"", "nope", "../../etc/passwd"} {
				if _, err := pool.Open(ctx, h); !errors.Is(err, previews.ErrUnknownHandle) {
					t.Errorf("Open(%q) error = %v, want ErrUnknownHandle", h, err)
				}
			}
		})
	}
}

func TestBlobStoresUnderPrefix(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	pool := previews.NewBlob(store, discardLogger())

	h, err := pool.Create(ctx, []byte("pixels"), "image/png")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if ok, _ := store.Exists(ctx, "previews/"+string(h)); !ok {
		t.Fatal("blob not stored under previews/ prefix")
	}

	if err := pool.Revoke(ctx, h); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if ok, _ := store.Exists(ctx, "previews/"+string(h)); ok {
		t.Error("blob still present after revoke")
	}
}

func TestBlobRevokeSurvivesDeleteFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	pool := previews.NewBlob(store, discardLogger())

	h, err := pool.Create(ctx, []byte("pixels"), "image/png")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	store.deleteErr = errors.New("network down")
	if err := pool.Revoke(ctx, h); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if pool.Outstanding() != 0 {
		t.Error("handle should be released even when blob delete fails")
	}
}

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     previews.Config
		want    string
		wantErr string
	}{
		{"defaults to memory", previews.Config{}, previews.BackendMemory, ""},
		{"blob requires connection", previews.Config{Backend: previews.BackendBlob}, "", "connection_string required"},
		{"blob with connection", previews.Config{Backend: previews.BackendBlob, Storage: storage.Config{ConnectionString: "conn"}}, previews.BackendBlob, ""},
		{"unknown backend", previews.Config{Backend: "s3"}, "", "unknown backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Finalize() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Finalize() error = %v", err)
			}
			if tt.cfg.Backend != tt.want {
				t.Errorf("backend = %q, want %q", tt.cfg.Backend, tt.want)
			}
		})
	}
}
