package previews

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/storage"
)

const keyPrefix = "previews/"

type blobPool struct {
	store  storage.System
	logger *slog.Logger

	mu   sync.Mutex
	live map[Handle]struct{}
}

// NewBlob creates a pool that keeps preview bytes in blob storage under
// previews/<handle>. Handle bookkeeping stays in process.
func NewBlob(store storage.System, logger *slog.Logger) Pool {
	return &blobPool{
		store:  store,
		logger: logger.With("system", "previews", "backend", BackendBlob),
		live:   make(map[Handle]struct{}),
	}
}

func newBlobPool(cfg *storage.Config, logger *slog.Logger) (Pool, error) {
	store, err := storage.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("preview storage: %w", err)
	}
	return NewBlob(store, logger), nil
}

func (b *blobPool) Start(lc *lifecycle.Coordinator) error {
	return b.store.Start(lc)
}

func (b *blobPool) Create(ctx context.Context, data []byte, contentType string) (Handle, error) {
	h := newHandle()

	if err := b.store.Upload(ctx, blobKey(h), bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("store preview: %w", err)
	}

	b.mu.Lock()
	b.live[h] = struct{}{}
	b.mu.Unlock()

	return h, nil
}

func (b *blobPool) Open(ctx context.Context, h Handle) (*Preview, error) {
	if !b.tracked(h) {
		return nil, ErrUnknownHandle
	}

	obj, err := b.store.Download(ctx, blobKey(h))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownHandle
		}
		return nil, fmt.Errorf("open preview: %w", err)
	}

	return &Preview{
		Body:        obj.Body,
		ContentType: obj.ContentType,
		Size:        obj.ContentLength,
	}, nil
}

// Revoke untracks the handle before deleting its blob, so a failed delete
// still leaves the handle revoked; the orphaned blob is logged.
func (b *blobPool) Revoke(ctx context.Context, h Handle) error {
	b.mu.Lock()
	if _, ok := b.live[h]; !ok {
		b.mu.Unlock()
		return ErrUnknownHandle
	}
	delete(b.live, h)
	b.mu.Unlock()

	if err := b.store.Delete(ctx, blobKey(h)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		b.logger.Warn("preview blob delete failed", "handle", h, "error", err)
	}
	return nil
}

func (b *blobPool) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

func (b *blobPool) tracked(h Handle) bool {
	if !validHandle(h) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.live[h]
	return ok
}

func blobKey(h Handle) string {
	return keyPrefix + string(h)
}
