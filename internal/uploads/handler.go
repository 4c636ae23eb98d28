package uploads

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/JaimeStill/lectern/pkg/auth"
	"github.com/JaimeStill/lectern/pkg/handlers"
	"github.com/JaimeStill/lectern/pkg/pagination"
	"github.com/JaimeStill/lectern/pkg/routes"
)

const multipartMemory = 32 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler provides HTTP endpoints for upload sessions and the crop dialog.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SessionResponse is the JSON view of a session.
type SessionResponse struct {
	ID       uuid.UUID `json:"id"`
	Files    []*File   `json:"files"`
	MaxFiles int       `json:"max_files"`
	MaxSize  int64     `json:"max_size"`
	Accept   []string  `json:"accept"`
	Crop     CropState `json:"crop"`
}

// ReadyFile describes one blob in the ready list.
type ReadyFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// UpdateRequest renames a file.
type UpdateRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// OpenCropRequest names the file the crop dialog targets.
type OpenCropRequest struct {
	FileID string `json:"file_id" validate:"required,uuid"`
}

// DisplayRequest reports the rendered size of the crop image.
type DisplayRequest struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// SelectionRequest is a crop rectangle in displayed pixels.
type SelectionRequest struct {
	X      float64 `json:"x" validate:"gte=0"`
	Y      float64 `json:"y" validate:"gte=0"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

func (r SelectionRequest) rect() Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// NewHandler creates a Handler with the given system, logger, pagination config, and upload size limit.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "sessions"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for session endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Create, OpenAPI: Spec.Create},
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: Spec.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, OpenAPI: Spec.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Close, OpenAPI: Spec.Close},
			{Method: "POST", Pattern: "/{id}/files", Handler: h.Add, OpenAPI: Spec.Add},
			{Method: "DELETE", Pattern: "/{id}/files", Handler: h.Clear, OpenAPI: Spec.Clear},
			{Method: "PATCH", Pattern: "/{id}/files/{file}", Handler: h.Update, OpenAPI: Spec.Update},
			{Method: "DELETE", Pattern: "/{id}/files/{file}", Handler: h.Remove, OpenAPI: Spec.Remove},
			{Method: "GET", Pattern: "/{id}/files/{file}/content", Handler: h.Content, OpenAPI: Spec.Content},
			{Method: "GET", Pattern: "/{id}/ready", Handler: h.Ready, OpenAPI: Spec.Ready},
			{Method: "POST", Pattern: "/{id}/crop", Handler: h.OpenCrop, OpenAPI: Spec.OpenCrop},
			{Method: "GET", Pattern: "/{id}/crop", Handler: h.CropState, OpenAPI: Spec.CropState},
			{Method: "PUT", Pattern: "/{id}/crop/display", Handler: h.SetCropDisplay, OpenAPI: Spec.SetCropDisplay},
			{Method: "PUT", Pattern: "/{id}/crop/selection", Handler: h.SelectCrop, OpenAPI: Spec.SelectCrop},
			{Method: "POST", Pattern: "/{id}/crop/commit", Handler: h.CommitCrop, OpenAPI: Spec.CommitCrop},
			{Method: "POST", Pattern: "/{id}/crop/apply", Handler: h.ApplyCrop, OpenAPI: Spec.ApplyCrop},
			{Method: "DELETE", Pattern: "/{id}/crop", Handler: h.CancelCrop, OpenAPI: Spec.CancelCrop},
		},
	}
}

// Create opens a session for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	s, err := h.sys.Create(r.Context(), Owner(r))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, NewSessionResponse(s))
}

// List returns a paginated list of the caller's sessions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	handlers.RespondJSON(w, http.StatusOK, h.sys.List(Owner(r), page))
}

// Find returns a session with its files and crop state.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	handlers.RespondJSON(w, http.StatusOK, NewSessionResponse(s))
}

// Close tears a session down and revokes its previews.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if err := h.sys.Close(r.Context(), Owner(r), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Add reads the multipart "files" parts and offers them to the session.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	inputs, err := ParseUpload(w, r, h.maxUploadSize, s.Config().ProbeWorkers, h.logger)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := s.Add(r.Context(), inputs)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Clear removes every file from the session.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Clear(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Update renames a file.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	fileID, ok := h.fileID(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := decode(r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	updated, err := s.Update(r.Context(), fileID, Patch{Name: &req.Name})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if !updated {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrFileNotFound)
		return
	}

	f, _ := s.File(fileID)
	handlers.RespondJSON(w, http.StatusOK, f)
}

// Remove deletes a file from the session.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	fileID, ok := h.fileID(w, r)
	if !ok {
		return
	}

	removed, err := s.Remove(r.Context(), fileID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if !removed {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrFileNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Content streams a file's current bytes under its declared type. Only raster
// images are served inline.
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	fileID, ok := h.fileID(w, r)
	if !ok {
		return
	}

	f, found := s.File(fileID)
	if !found {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrFileNotFound)
		return
	}

	handlers.SetUntrustedContentHeaders(w, f.Content.ContentType, f.Name)
	w.Header().Set("Content-Length", strconv.FormatInt(f.Content.Size(), 10))
	w.WriteHeader(http.StatusOK)
	w.Write(f.Content.Data)
}

// Ready returns the list last delivered to the upload sink.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	ready := lo.Map(s.Ready(), func(b *Blob, _ int) ReadyFile {
		return ReadyFile{Name: b.Name, ContentType: b.ContentType, Size: b.Size()}
	})
	handlers.RespondJSON(w, http.StatusOK, ready)
}

// OpenCrop opens the crop dialog on a file.
func (h *Handler) OpenCrop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req OpenCropRequest
	if err := decode(r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	state, err := s.OpenCrop(r.Context(), uuid.MustParse(req.FileID))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, state)
}

// CropState returns the crop dialog state.
func (h *Handler) CropState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s.CropState())
}

// SetCropDisplay records the rendered image size.
func (h *Handler) SetCropDisplay(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req DisplayRequest
	if err := decode(r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	state, err := s.SetCropDisplay(req.Width, req.Height)
	h.respondCrop(w, state, err)
}

// SelectCrop updates the pending selection.
func (h *Handler) SelectCrop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SelectionRequest
	if err := decode(r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	state, err := s.SelectCrop(req.rect())
	h.respondCrop(w, state, err)
}

// CommitCrop sets the committed selection.
func (h *Handler) CommitCrop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SelectionRequest
	if err := decode(r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	state, err := s.CommitCrop(req.rect())
	h.respondCrop(w, state, err)
}

// ApplyCrop renders the committed selection into the target file.
func (h *Handler) ApplyCrop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	f, err := s.ApplyCrop(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, f)
}

// CancelCrop closes the crop dialog.
func (h *Handler) CancelCrop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.CancelCrop(); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// NewSessionResponse builds the JSON view of s.
func NewSessionResponse(s *Session) SessionResponse {
	cfg := s.Config()
	return SessionResponse{
		ID:       s.ID(),
		Files:    s.Files(),
		MaxFiles: cfg.MaxFiles,
		MaxSize:  cfg.MaxSizeBytes(),
		Accept:   cfg.Accept,
		Crop:     s.CropState(),
	}
}

// Owner returns the subject of the request identity, or "" without one.
func Owner(r *http.Request) string {
	if id, ok := auth.FromContext(r.Context()); ok {
		return id.Subject
	}
	return ""
}

// ParseUpload limits the request body, parses the multipart form, and reads
// its "files" parts.
func ParseUpload(
	w http.ResponseWriter,
	r *http.Request,
	maxUploadSize int64,
	workers int,
	logger *slog.Logger,
) ([]Input, error) {
	if r.ContentLength > maxUploadSize {
		return nil, ErrPayloadTooLarge
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrPayloadTooLarge
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	parts := r.MultipartForm.File["files"]
	inputs, err := ReadInputs(r.Context(), parts, workers, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return inputs, nil
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return nil, false
	}

	s, err := h.sys.Get(Owner(r), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return s, true
}

func (h *Handler) fileID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("file"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondCrop(w http.ResponseWriter, state CropState, err error) {
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, state)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}
