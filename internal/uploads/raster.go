package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoSurface indicates a crop region with no drawable area.
var ErrNoSurface = errors.New("no drawing surface")

// Rasterizer renders a region of an image into a new image artifact.
type Rasterizer interface {
	Rasterize(ctx context.Context, src *Blob, region image.Rectangle) (*Blob, error)
}

// PNGRasterizer resamples the region with Catmull-Rom and encodes PNG. The
// artifact keeps the source name.
type PNGRasterizer struct{}

// Rasterize decodes src, draws region into a canvas of the region's size,
// and encodes the canvas as image/png.
func (PNGRasterizer) Rasterize(ctx context.Context, src *Blob, region image.Rectangle) (*Blob, error) {
	if region.Empty() {
		return nil, ErrNoSurface
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	region = region.Add(bounds.Min).Intersect(bounds)
	if region.Empty() {
		return nil, ErrNoSurface
	}

	canvas := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.CatmullRom.Scale(canvas, canvas.Bounds(), img, region, draw.Src, nil)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return &Blob{
		Name:        src.Name,
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, nil
}

// imageSize reads the natural dimensions from the image header.
func imageSize(data []byte) (Size, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Size{}, err
	}
	return Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}
