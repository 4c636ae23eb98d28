package uploads_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/lectern/internal/uploads"
)

func TestMultiSinkDeliversInOrder(t *testing.T) {
	var order []string
	first := uploads.SinkFunc(func(ctx context.Context, id uuid.UUID, files []*uploads.Blob) {
		order = append(order, "first")
	})
	second := uploads.SinkFunc(func(ctx context.Context, id uuid.UUID, files []*uploads.Blob) {
		order = append(order, "second")
	})

	uploads.MultiSink{first, second}.FilesReady(context.Background(), uuid.New(), nil)

	if strings.Join(order, ",") != "first,second" {
		t.Errorf("order: got %v", order)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := uploads.NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	sink.FilesReady(context.Background(), uuid.New(), []*uploads.Blob{{Name: "a.txt"}, {Name: "b.pdf"}})

	out := buf.String()
	if !strings.Contains(out, "files ready") || !strings.Contains(out, "count=2") {
		t.Errorf("log output: %s", out)
	}
	if !strings.Contains(out, "a.txt") || !strings.Contains(out, "b.pdf") {
		t.Errorf("log should name files: %s", out)
	}
}
