package previews

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
)

type entry struct {
	data        []byte
	contentType string
}

type memory struct {
	mu      sync.RWMutex
	entries map[Handle]entry
	logger  *slog.Logger
}

// NewMemory creates a process-local pool.
func NewMemory(logger *slog.Logger) Pool {
	return &memory{
		entries: make(map[Handle]entry),
		logger:  logger.With("system", "previews", "backend", BackendMemory),
	}
}

func (m *memory) Start(lc *lifecycle.Coordinator) error {
	m.logger.Info("preview pool ready")
	return nil
}

func (m *memory) Create(ctx context.Context, data []byte, contentType string) (Handle, error) {
	h := newHandle()

	m.mu.Lock()
	m.entries[h] = entry{data: data, contentType: contentType}
	m.mu.Unlock()

	return h, nil
}

func (m *memory) Open(ctx context.Context, h Handle) (*Preview, error) {
	m.mu.RLock()
	e, ok := m.entries[h]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrUnknownHandle
	}

	return &Preview{
		Body:        io.NopCloser(bytes.NewReader(e.data)),
		ContentType: e.contentType,
		Size:        int64(len(e.data)),
	}, nil
}

func (m *memory) Revoke(ctx context.Context, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[h]; !ok {
		return ErrUnknownHandle
	}
	delete(m.entries, h)
	return nil
}

func (m *memory) Outstanding() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
