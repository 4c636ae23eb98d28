// Package previews issues revocable preview handles for image content.
// A handle references stored bytes until it is revoked; each handle can be
// revoked once, after which it no longer resolves.
package previews

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
)

// Handle is an opaque preview reference.
type Handle string

// Preview is an opened preview stream. The caller must close Body.
type Preview struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Pool creates, resolves, and revokes preview handles.
type Pool interface {
	// Start registers any backend initialization with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Create stores data and returns a new handle for it.
	Create(ctx context.Context, data []byte, contentType string) (Handle, error)
	// Open resolves a handle. Returns ErrUnknownHandle for unknown or revoked handles.
	Open(ctx context.Context, h Handle) (*Preview, error)
	// Revoke releases a handle. Returns ErrUnknownHandle for unknown or revoked handles.
	Revoke(ctx context.Context, h Handle) error
	// Outstanding returns the number of handles created and not yet revoked.
	Outstanding() int
}

// New creates the pool selected by cfg.Backend.
func New(cfg *Config, logger *slog.Logger) (Pool, error) {
	switch cfg.Backend {
	case BackendBlob:
		return newBlobPool(&cfg.Storage, logger)
	default:
		return NewMemory(logger), nil
	}
}

func newHandle() Handle {
	return Handle(uuid.NewString())
}

func validHandle(h Handle) bool {
	_, err := uuid.Parse(string(h))
	return err == nil
}
