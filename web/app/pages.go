package app

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JaimeStill/lectern/internal/api"
	"github.com/JaimeStill/lectern/internal/uploads"
	"github.com/JaimeStill/lectern/pkg/i18n"
	"github.com/JaimeStill/lectern/pkg/previews"
	"github.com/JaimeStill/lectern/pkg/web"
)

const languageCookie = "language"

var validate = validator.New(validator.WithRequiredStructEnabled())

var errInvalidCrop = errors.New("crop fields must be numbers")

// pageData is the Data payload of every page.
type pageData struct {
	L        i18n.Provider
	View     uploads.View
	Crop     *cropForm
	Error    string
	Dropped  int
	ReturnTo string
}

// cropForm describes the crop page. The page renders the image at its
// natural size, so selections are in natural pixels.
type cropForm struct {
	SessionID   uuid.UUID
	FileID      uuid.UUID
	Name        string
	Source      string
	Natural     uploads.Size
	Selection   uploads.Rect
	AspectRatio float64
	MinWidth    int
	MinHeight   int
}

type cropRequest struct {
	X      float64 `validate:"gte=0"`
	Y      float64 `validate:"gte=0"`
	Width  float64 `validate:"gt=0"`
	Height float64 `validate:"gt=0"`
}

type pages struct {
	basePath string
	ts       *web.TemplateSet
	deps     *Deps
	logger   *slog.Logger
}

func newPages(basePath string, ts *web.TemplateSet, deps *Deps) *pages {
	return &pages{
		basePath: basePath,
		ts:       ts,
		deps:     deps,
		logger:   deps.Logger.With("handler", "pages"),
	}
}

func (p *pages) index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, p.basePath+uploadView.Route, http.StatusFound)
}

func (p *pages) signIn(w http.ResponseWriter, r *http.Request) {
	l := p.localize(w, r)

	returnTo := r.URL.Query().Get("redirect_url")
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		returnTo = p.basePath + uploadView.Route
	}

	p.render(w, http.StatusOK, signInView, l, pageData{L: l, ReturnTo: returnTo})
}

// upload renders the caller's session, creating one when the query names
// none the caller owns.
func (p *pages) upload(w http.ResponseWriter, r *http.Request) {
	l := p.localize(w, r)
	owner := uploads.Owner(r)

	if id, err := uuid.Parse(r.URL.Query().Get("session")); err == nil {
		if s, err := p.deps.Uploads.Get(owner, id); err == nil {
			data := pageData{L: l, View: uploads.BuildView(s, l, p.previewURL)}
			if n, err := strconv.Atoi(r.URL.Query().Get("dropped")); err == nil && n > 0 {
				data.Dropped = n
			}
			p.render(w, http.StatusOK, uploadView, l, data)
			return
		}
	}

	s, err := p.deps.Uploads.Create(r.Context(), owner)
	if err != nil {
		p.fail(w, uploads.MapHTTPStatus(err), err)
		return
	}
	http.Redirect(w, r, p.sessionURL(s.ID()), http.StatusFound)
}

func (p *pages) add(w http.ResponseWriter, r *http.Request) {
	s, ok := p.session(w, r)
	if !ok {
		return
	}

	inputs, err := uploads.ParseUpload(w, r, p.deps.MaxUploadSize, s.Config().ProbeWorkers, p.logger)
	if err != nil {
		p.fail(w, uploads.MapHTTPStatus(err), err)
		return
	}

	result, err := s.Add(r.Context(), inputs)
	if err != nil {
		p.fail(w, uploads.MapHTTPStatus(err), err)
		return
	}

	target := p.sessionURL(s.ID())
	if result.Dropped > 0 {
		target += "&dropped=" + strconv.Itoa(result.Dropped)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (p *pages) remove(w http.ResponseWriter, r *http.Request) {
	s, ok := p.session(w, r)
	if !ok {
		return
	}
	fileID, ok := p.fileID(w, r)
	if !ok {
		return
	}

	if _, err := s.Remove(r.Context(), fileID); err != nil {
		p.fail(w, uploads.MapHTTPStatus(err), err)
		return
	}
	http.Redirect(w, r, p.sessionURL(s.ID()), http.StatusSeeOther)
}

func (p *pages) clear(w http.ResponseWriter, r *http.Request) {
	s, ok := p.session(w, r)
	if !ok {
		return
	}

	if err := s.Clear(r.Context()); err != nil {
		p.fail(w, uploads.MapHTTPStatus(err), err)
		return
	}
	http.Redirect(w, r, p.sessionURL(s.ID()), http.StatusSeeOther)
}

// openCrop opens the crop dialog on the file and redirects to the crop page.
func (p *pages) openCrop(w http.ResponseWriter, r *http.Request) {
	s, ok := p.session(w, r)
	if !ok {
		return
	}
	fileID, ok := p.fileID(w, r)
	if !ok {
		return
	}

	if _, err := s.OpenCrop(r.Context(), fileID); err != nil {
		p.fail(w, uploads.MapHTTPStatus(err), err)
		return
	}
	http.Redirect(w, r, p.cropURL(s.ID(), fileID), http.StatusSeeOther)
}

// showCrop renders the crop dialog when it is open on the file. Otherwise it
// returns to the upload page without opening anything.
func (p *pages) showCrop(w http.ResponseWriter, r *http.Request) {
	l := p.localize(w, r)
	s, ok := p.session(w, r)
	if !ok {
		return
	}
	fileID, ok := p.fileID(w, r)
	if !ok {
		return
	}

	state := s.CropState()
	if !state.Open || state.FileID == nil || *state.FileID != fileID {
		http.Redirect(w, r, p.sessionURL(s.ID()), http.StatusFound)
		return
	}
	p.renderCrop(w, http.StatusOK, l, s, state, "")
}

// applyCrop commits the submitted selection and renders it. A rejected
// selection re-renders the form with the reason.
func (p *pages) applyCrop(w http.ResponseWriter, r *http.Request) {
	l := p.localize(w, r)
	s, ok := p.session(w, r)
	if !ok {
		return
	}
	fileID, ok := p.fileID(w, r)
	if !ok {
		return
	}

	req, err := parseCropRequest(r)
	if err != nil {
		p.fail(w, http.StatusBadRequest, err)
		return
	}

	state := s.CropState()
	if !state.Open || state.FileID == nil || *state.FileID != fileID {
		if state, err = s.OpenCrop(r.Context(), fileID); err != nil {
			p.fail(w, uploads.MapHTTPStatus(err), err)
			return
		}
	}
	if state.Display != state.Natural {
		if state, err = s.SetCropDisplay(state.Natural.Width, state.Natural.Height); err != nil {
			p.fail(w, uploads.MapHTTPStatus(err), err)
			return
		}
	}

	rect := uploads.Rect{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}
	if _, err = s.CommitCrop(rect); err != nil {
		status := uploads.MapHTTPStatus(err)
		if status == http.StatusUnprocessableEntity {
			p.renderCrop(w, status, l, s, s.CropState(), err.Error())
			return
		}
		p.fail(w, status, err)
		return
	}

	if _, err := s.ApplyCrop(r.Context()); err != nil {
		p.fail(w, uploads.MapHTTPStatus(err), err)
		return
	}
	http.Redirect(w, r, p.sessionURL(s.ID()), http.StatusSeeOther)
}

func (p *pages) cancelCrop(w http.ResponseWriter, r *http.Request) {
	s, ok := p.session(w, r)
	if !ok {
		return
	}

	if err := s.CancelCrop(); err != nil {
		p.fail(w, uploads.MapHTTPStatus(err), err)
		return
	}
	http.Redirect(w, r, p.sessionURL(s.ID()), http.StatusSeeOther)
}

func (p *pages) renderCrop(
	w http.ResponseWriter,
	status int,
	l i18n.Provider,
	s *uploads.Session,
	state uploads.CropState,
	message string,
) {
	form := &cropForm{
		SessionID:   s.ID(),
		Natural:     state.Natural,
		Source:      p.previewURL(state.Source),
		AspectRatio: state.AspectRatio,
		MinWidth:    state.MinWidth,
		MinHeight:   state.MinHeight,
	}
	if state.FileID != nil {
		form.FileID = *state.FileID
		if f, ok := s.File(*state.FileID); ok {
			form.Name = f.Name
		}
	}
	switch {
	case state.Committed != nil:
		form.Selection = *state.Committed
	case state.Pending != nil:
		form.Selection = *state.Pending
	}

	p.render(w, status, cropView, l, pageData{L: l, Crop: form, Error: message})
}

func (p *pages) render(w http.ResponseWriter, status int, view web.ViewDef, l i18n.Provider, data pageData) {
	vd := web.ViewData{
		Title:    l.T(view.Title),
		Bundle:   view.Bundle,
		BasePath: p.basePath,
		Data:     data,
	}
	if err := p.ts.Render(w, status, layout, view.Template, vd); err != nil {
		p.logger.Error("render failed", "template", view.Template, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (p *pages) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		p.logger.Error("page error", "status", status, "error", err)
	} else {
		p.logger.Warn("page request rejected", "status", status, "error", err)
	}
	http.Error(w, err.Error(), status)
}

// localize negotiates the page language. An explicit lang parameter is
// remembered in a cookie.
func (p *pages) localize(w http.ResponseWriter, r *http.Request) i18n.Provider {
	l := p.deps.Catalog.Negotiate(r)
	if r.URL.Query().Get("lang") != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     languageCookie,
			Value:    l.Language(),
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
	}
	return l
}

func (p *pages) session(w http.ResponseWriter, r *http.Request) (*uploads.Session, bool) {
	id, err := uuid.Parse(r.PathValue("session"))
	if err != nil {
		p.fail(w, http.StatusBadRequest, uploads.ErrInvalidRequest)
		return nil, false
	}

	s, err := p.deps.Uploads.Get(uploads.Owner(r), id)
	if err != nil {
		p.fail(w, uploads.MapHTTPStatus(err), err)
		return nil, false
	}
	return s, true
}

func (p *pages) fileID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("file"))
	if err != nil {
		p.fail(w, http.StatusBadRequest, uploads.ErrInvalidRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (p *pages) previewURL(h previews.Handle) string {
	return api.PreviewPath(p.deps.APIBasePath, h)
}

func (p *pages) sessionURL(id uuid.UUID) string {
	return p.basePath + uploadView.Route + "?session=" + id.String()
}

func (p *pages) cropURL(sessionID, fileID uuid.UUID) string {
	return p.basePath + "/upload/" + sessionID.String() + "/crop/" + fileID.String()
}

func parseCropRequest(r *http.Request) (cropRequest, error) {
	if err := r.ParseForm(); err != nil {
		return cropRequest{}, errInvalidCrop
	}

	var req cropRequest
	fields := []struct {
		name string
		dst  *float64
	}{
		{"x", &req.X},
		{"y", &req.Y},
		{"width", &req.Width},
		{"height", &req.Height},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(r.PostForm.Get(f.name)), 64)
		if err != nil {
			return cropRequest{}, errInvalidCrop
		}
		*f.dst = v
	}

	if err := validate.Struct(req); err != nil {
		return cropRequest{}, errors.Join(errInvalidCrop, err)
	}
	return req, nil
}
