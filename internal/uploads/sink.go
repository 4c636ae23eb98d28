package uploads

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Sink receives the full list of valid files after every mutation of a
// session. Delivery happens under the session lock, so a Sink must not call
// back into the session.
type Sink interface {
	FilesReady(ctx context.Context, sessionID uuid.UUID, files []*Blob)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, sessionID uuid.UUID, files []*Blob)

// FilesReady calls f.
func (f SinkFunc) FilesReady(ctx context.Context, sessionID uuid.UUID, files []*Blob) {
	f(ctx, sessionID, files)
}

// MultiSink delivers to each sink in order.
type MultiSink []Sink

// FilesReady forwards files to every sink.
func (m MultiSink) FilesReady(ctx context.Context, sessionID uuid.UUID, files []*Blob) {
	for _, s := range m {
		s.FilesReady(ctx, sessionID, files)
	}
}

type logSink struct {
	logger *slog.Logger
}

// NewLogSink creates a Sink that logs each delivery.
func NewLogSink(logger *slog.Logger) Sink {
	return &logSink{logger: logger.With("sink", "log")}
}

func (s *logSink) FilesReady(ctx context.Context, sessionID uuid.UUID, files []*Blob) {
	s.logger.InfoContext(ctx, "files ready",
		"session", sessionID,
		"count", len(files),
		"names", lo.Map(files, func(b *Blob, _ int) string { return b.Name }),
	)
}
