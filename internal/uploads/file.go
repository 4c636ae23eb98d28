// Package uploads manages upload sessions: the bounded list of candidate
// files a user has picked, their validation state, preview handles, and the
// crop dialog that replaces an image's content with a cropped rendition.
package uploads

import (
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/lectern/pkg/previews"
)

// Status is the lifecycle state of a candidate file.
type Status string

const (
	StatusPending  Status = "pending-upload"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	ErrorSizeExceeded    ErrorKind = "size_exceeded"
	ErrorUnsupportedType ErrorKind = "unsupported_type"
)

// Blob is an immutable named binary payload.
type Blob struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.Data))
}

// Input is a file offered to a session.
type Input struct {
	Name      string
	Type      string
	Data      []byte
	PageCount *int
}

// File is a candidate file in a session.
type File struct {
	ID             uuid.UUID       `json:"id"`
	Content        *Blob           `json:"-"`
	Original       *Blob           `json:"-"`
	Name           string          `json:"name"`
	Size           int64           `json:"size"`
	Type           string          `json:"type"`
	Progress       int             `json:"progress"`
	Status         Status          `json:"status"`
	Error          *string         `json:"error,omitempty"`
	ErrorKind      ErrorKind       `json:"error_kind,omitempty"`
	Preview        previews.Handle `json:"preview,omitempty"`
	CroppedPreview previews.Handle `json:"cropped_preview,omitempty"`
	PageCount      *int            `json:"page_count,omitempty"`
	Cropped        bool            `json:"cropped"`

	// natural is the decoded raster size of Content, nil when the content
	// does not decode as a raster image.
	natural *Size
}

// Croppable reports whether the crop dialog can target the file under c.
func (f *File) Croppable(c CropConfig) bool {
	return f.cropCheck(c) == nil
}

// cropCheck returns why the crop dialog cannot target the file, or nil.
func (f *File) cropCheck(c CropConfig) error {
	if f.Preview == "" || f.Status == StatusError || f.natural == nil {
		return ErrCropIneligible
	}
	if f.natural.Width < float64(c.MinWidth) || f.natural.Height < float64(c.MinHeight) {
		return ErrSelectionTooSmall
	}
	return nil
}

// setContent replaces the content and re-reads its raster size.
func (f *File) setContent(b *Blob) {
	f.Content = b
	f.Size = b.Size()
	f.natural = nil
	if !isImage(b.ContentType) {
		return
	}
	if size, err := imageSize(b.Data); err == nil {
		f.natural = &size
	}
}

// DisplayPreview returns the cropped preview when present, otherwise the original preview.
func (f *File) DisplayPreview() previews.Handle {
	if f.CroppedPreview != "" {
		return f.CroppedPreview
	}
	return f.Preview
}

func (f *File) clone() *File {
	c := *f
	c.Cropped = f.Original != nil
	return &c
}

func isImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
