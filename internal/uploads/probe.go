package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
)

// ReadInputs reads multipart file parts concurrently with at most workers in
// flight and returns them as inputs in part order.
func ReadInputs(
	ctx context.Context,
	parts []*multipart.FileHeader,
	workers int,
	logger *slog.Logger,
) ([]Input, error) {
	inputs := make([]Input, len(parts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, part := range parts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			in, err := readPart(part, logger)
			if err != nil {
				return fmt.Errorf("read %s: %w", part.Filename, err)
			}
			inputs[i] = in
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

func readPart(part *multipart.FileHeader, logger *slog.Logger) (Input, error) {
	file, err := part.Open()
	if err != nil {
		return Input{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Input{}, err
	}

	contentType := DetectContentType(part.Header.Get("Content-Type"), data)
	return Input{
		Name:      part.Filename,
		Type:      contentType,
		Data:      data,
		PageCount: pdfPageCount(logger, data, contentType),
	}, nil
}

// DetectContentType prefers the declared media type and sniffs the content
// when the declaration is missing or generic. Parameters are dropped.
func DetectContentType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared == "" || declared == "application/octet-stream" {
		declared = mimetype.Detect(data).String()
	}
	mediaType, _, _ := strings.Cut(declared, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func pdfPageCount(logger *slog.Logger, data []byte, contentType string) *int {
	if contentType != "application/pdf" {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}
	return &count
}
