package uploads

import (
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/JaimeStill/lectern/pkg/formatting"
	"github.com/JaimeStill/lectern/pkg/i18n"
	"github.com/JaimeStill/lectern/pkg/previews"
)

// IconKind selects the placeholder icon for a file without a preview.
type IconKind string

const (
	IconImage IconKind = "image"
	IconVideo IconKind = "video"
	IconAudio IconKind = "audio"
	IconPDF   IconKind = "pdf"
	IconFile  IconKind = "file"
)

// PreviewURL resolves a preview handle to a URL the client can load.
type PreviewURL func(h previews.Handle) string

// View is the presentational model of a session: the drop zone and the file list.
type View struct {
	SessionID uuid.UUID `json:"session_id"`
	Language  string    `json:"language"`
	DropZone  DropZone  `json:"drop_zone"`
	FileList  FileList  `json:"file_list"`
}

// DropZone describes the file picker area.
type DropZone struct {
	Title    string   `json:"title"`
	Active   string   `json:"active"`
	Hint     string   `json:"hint"`
	Choose   string   `json:"choose"`
	Types    []string `json:"types"`
	Accept   string   `json:"accept"`
	Limits   string   `json:"limits"`
	Disabled bool     `json:"disabled"`
}

// FileList describes the uploaded file list. Visible is false when empty.
type FileList struct {
	Visible  bool       `json:"visible"`
	Header   string     `json:"header"`
	ClearAll string     `json:"clear_all"`
	Items    []FileItem `json:"items"`
}

// FileItem is one row of the file list.
type FileItem struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Meta       string    `json:"meta"`
	Icon       IconKind  `json:"icon"`
	Progress   int       `json:"progress"`
	Error      string    `json:"error,omitempty"`
	Complete   bool      `json:"complete"`
	Cropped    bool      `json:"cropped"`
	CanCrop    bool      `json:"can_crop"`
	PreviewURL string    `json:"preview_url,omitempty"`
	PageCount  *int      `json:"page_count,omitempty"`
}

var typeLabelKeys = map[string]string{
	"image/*":         "uploader.types.images",
	"application/pdf": "uploader.types.pdf",
	"text/*":          "uploader.types.text",
	"video/*":         "uploader.types.videos",
	"audio/*":         "uploader.types.audio",
}

// BuildView renders the session into its presentational model.
func BuildView(s *Session, l i18n.Provider, previewURL PreviewURL) View {
	cfg := s.Config()
	files := s.Files()

	return View{
		SessionID: s.ID(),
		Language:  l.Language(),
		DropZone:  buildDropZone(cfg, len(files), l),
		FileList:  buildFileList(cfg, files, l, previewURL),
	}
}

func buildDropZone(cfg *Config, count int, l i18n.Provider) DropZone {
	return DropZone{
		Title:  l.T("uploader.dropTitle"),
		Active: l.T("uploader.dropActive"),
		Hint:   l.T("uploader.dropHint"),
		Choose: l.T("uploader.choose"),
		Types: lo.Map(cfg.Accept, func(pattern string, _ int) string {
			return TypeLabel(pattern, l)
		}),
		Accept: strings.Join(cfg.Accept, ","),
		Limits: l.Tf("uploader.limits",
			"max", cfg.MaxFiles,
			"size", formatting.FormatFileSize(cfg.MaxSizeBytes()),
		),
		Disabled: count >= cfg.MaxFiles,
	}
}

func buildFileList(cfg *Config, files []*File, l i18n.Provider, previewURL PreviewURL) FileList {
	return FileList{
		Visible:  len(files) > 0,
		Header:   l.Tf("uploader.listHeader", "count", len(files), "max", cfg.MaxFiles),
		ClearAll: l.T("uploader.clearAll"),
		Items: lo.Map(files, func(f *File, _ int) FileItem {
			return buildItem(f, cfg, l, previewURL)
		}),
	}
}

var errorKeys = map[ErrorKind]string{
	ErrorSizeExceeded:    "uploader.errors.sizeExceeded",
	ErrorUnsupportedType: "uploader.errors.unsupportedType",
}

func buildItem(f *File, cfg *Config, l i18n.Provider, previewURL PreviewURL) FileItem {
	item := FileItem{
		ID:        f.ID,
		Name:      f.Name,
		Meta:      formatting.FormatFileSize(f.Size) + " • " + f.Type,
		Icon:      Icon(f.Type),
		Progress:  f.Progress,
		Complete:  f.Status == StatusComplete && f.Error == nil,
		Cropped:   f.CroppedPreview != "",
		CanCrop:   f.Croppable(cfg.Crop),
		PageCount: f.PageCount,
	}
	if f.Error != nil {
		item.Error = errorMessage(f, cfg, l)
	}
	if h := f.DisplayPreview(); h != "" && previewURL != nil {
		item.PreviewURL = previewURL(h)
	}
	return item
}

// errorMessage localizes a validation failure by kind. Errors without a
// known kind keep the stored message.
func errorMessage(f *File, cfg *Config, l i18n.Provider) string {
	key, ok := errorKeys[f.ErrorKind]
	if !ok {
		return *f.Error
	}
	return l.Tf(key, "size", formatting.FormatFileSize(cfg.MaxSizeBytes()))
}

// TypeLabel returns the readable label for an accept pattern, or the
// pattern itself when no label exists.
func TypeLabel(pattern string, l i18n.Provider) string {
	if key, ok := typeLabelKeys[pattern]; ok {
		return l.T(key)
	}
	return pattern
}

// Icon picks the placeholder icon for a MIME type.
func Icon(contentType string) IconKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return IconImage
	case strings.HasPrefix(contentType, "video/"):
		return IconVideo
	case strings.HasPrefix(contentType, "audio/"):
		return IconAudio
	case contentType == "application/pdf":
		return IconPDF
	default:
		return IconFile
	}
}
