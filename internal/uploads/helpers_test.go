package uploads_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/lectern/internal/uploads"
	"github.com/JaimeStill/lectern/pkg/previews"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingPool wraps the memory pool and counts revocations per handle.
type countingPool struct {
	previews.Pool

	mu        sync.Mutex
	created   []previews.Handle
	revoked   map[previews.Handle]int
	createErr error
}

func newCountingPool() *countingPool {
	return &countingPool{
		Pool:    previews.NewMemory(discardLogger()),
		revoked: make(map[previews.Handle]int),
	}
}

func (p *countingPool) Create(ctx context.Context, data []byte, contentType string) (previews.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", p.createErr
	}
	h, err := p.Pool.Create(ctx, data, contentType)
	if err == nil {
		p.created = append(p.created, h)
	}
	return h, err
}

func (p *countingPool) Revoke(ctx context.Context, h previews.Handle) error {
	p.mu.Lock()
	p.revoked[h]++
	p.mu.Unlock()
	return p.Pool.Revoke(ctx, h)
}

func (p *countingPool) revokeCount(h previews.Handle) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revoked[h]
}

func (p *countingPool) totalRevokes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.revoked {
		n += c
	}
	return n
}

// recordingSink keeps every delivered list.
type recordingSink struct {
	mu         sync.Mutex
	deliveries [][]*uploads.Blob
}

func (s *recordingSink) FilesReady(ctx context.Context, sessionID uuid.UUID, files []*uploads.Blob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, files)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deliveries)
}

func (s *recordingSink) last() []*uploads.Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.deliveries) == 0 {
		return nil
	}
	return s.deliveries[len(s.deliveries)-1]
}

// stubRasterizer records regions and returns a fixed result. When gate is
// set it blocks until the gate is closed.
type stubRasterizer struct {
	mu      sync.Mutex
	regions []image.Rectangle
	started chan struct{}
	gate    chan struct{}
	err     error
}

func (r *stubRasterizer) Rasterize(ctx context.Context, src *uploads.Blob, region image.Rectangle) (*uploads.Blob, error) {
	r.mu.Lock()
	r.regions = append(r.regions, region)
	r.mu.Unlock()

	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.gate != nil {
		<-r.gate
	}
	if r.err != nil {
		return nil, r.err
	}
	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy())))
	return &uploads.Blob{
		Name:        src.Name,
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, nil
}

func (r *stubRasterizer) lastRegion() image.Rectangle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.regions[len(r.regions)-1]
}

var errBoom = errors.New("boom")

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testConfig(t *testing.T, mutate ...func(*uploads.Config)) *uploads.Config {
	t.Helper()
	cfg := &uploads.Config{}
	for _, m := range mutate {
		m(cfg)
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return cfg
}

type fixture struct {
	session *uploads.Session
	pool    *countingPool
	sink    *recordingSink
	raster  *stubRasterizer
}

func newFixture(t *testing.T, mutate ...func(*uploads.Config)) *fixture {
	t.Helper()
	f := &fixture{
		pool:   newCountingPool(),
		sink:   &recordingSink{},
		raster: &stubRasterizer{},
	}
	f.session = uploads.NewSession("owner", testConfig(t, mutate...), f.pool, f.sink, f.raster, discardLogger())
	return f
}

func textInput(name string, size int) uploads.Input {
	return uploads.Input{Name: name, Type: "text/plain", Data: bytes.Repeat([]byte("a"), size)}
}

func imageInput(t *testing.T, name string, w, h int) uploads.Input {
	return uploads.Input{Name: name, Type: "image/png", Data: pngBytes(t, w, h)}
}
