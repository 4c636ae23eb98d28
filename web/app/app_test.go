package app_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"

	"github.com/JaimeStill/lectern/internal/locales"
	"github.com/JaimeStill/lectern/internal/uploads"
	"github.com/JaimeStill/lectern/pkg/auth"
	"github.com/JaimeStill/lectern/pkg/i18n"
	"github.com/JaimeStill/lectern/pkg/module"
	"github.com/JaimeStill/lectern/pkg/pagination"
	"github.com/JaimeStill/lectern/pkg/previews"
	"github.com/JaimeStill/lectern/web/app"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(ctx context.Context, raw string) (*oidc.IDToken, error) {
	return nil, errors.New("rejected")
}

type fixture struct {
	module  *module.Module
	uploads uploads.System
}

func newFixture(t *testing.T, gate auth.Gate) *fixture {
	t.Helper()
	logger := discardLogger()

	cfg := &uploads.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("uploads finalize: %v", err)
	}

	sys := uploads.New(
		cfg,
		previews.NewMemory(logger),
		uploads.NewLogSink(logger),
		uploads.PNGRasterizer{},
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		logger,
	)

	catalog, err := i18n.LoadFS(locales.FS, "en")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}

	if gate == nil {
		gate = auth.New(&auth.Config{LocalSubject: "local", SignInURL: "/app/sign-in"}, logger)
	}

	m, err := app.NewModule("/app", &app.Deps{
		Uploads:       sys,
		Catalog:       catalog,
		Gate:          gate,
		APIBasePath:   "/api",
		MaxUploadSize: 64 << 20,
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	return &fixture{module: m, uploads: sys}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.module.Serve(rec, req)
	return rec
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (f *fixture) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req)
}

// openSession follows the session-creating redirect and returns the session.
func (f *fixture) openSession(t *testing.T) *uploads.Session {
	t.Helper()
	rec := f.get("/app/upload")
	if rec.Code != http.StatusFound {
		t.Fatalf("status: got %d, want 302", rec.Code)
	}

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	id, err := uuid.Parse(loc.Query().Get("session"))
	if err != nil {
		t.Fatalf("location %s has no session: %v", loc, err)
	}

	s, err := f.uploads.Get("local", id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return s
}

func (f *fixture) upload(t *testing.T, s *uploads.Session, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/app/upload/"+s.ID().String()+"/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return f.do(req)
}

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

func TestIndexRedirects(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/app/")
	if rec.Code != http.StatusFound {
		t.Fatalf("status: got %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/app/upload" {
		t.Errorf("location: got %s, want /app/upload", loc)
	}
}

func TestUploadPage(t *testing.T) {
	f := newFixture(t, nil)
	s := f.openSession(t)

	rec := f.get("/app/upload?session=" + s.ID().String())
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"Upload a Document to Post",
		"Max 10 files, up to 10 MB each",
		`accept="image/*,application/pdf,text/*"`,
		"Images · PDF · Text files",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "file-list") {
		t.Error("empty session should not render the file list")
	}
}

func TestUploadPageUnknownSessionCreatesOne(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/app/upload?session=" + uuid.NewString())
	if rec.Code != http.StatusFound {
		t.Fatalf("status: got %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/app/upload?session=") {
		t.Errorf("location: got %s", loc)
	}
}

func TestUploadPageLanguage(t *testing.T) {
	f := newFixture(t, nil)
	s := f.openSession(t)

	rec := f.get("/app/upload?lang=es&session=" + s.ID().String())
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `lang="es"`) {
		t.Error("page not rendered in Spanish")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "language" || cookies[0].Value != "es" {
		t.Errorf("cookies: got %v, want language=es", cookies)
	}
}

func TestAddFiles(t *testing.T) {
	f := newFixture(t, nil)
	s := f.openSession(t)

	rec := f.upload(t, s, "photo.png", pngBytes(t, 100, 80))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want 303", rec.Code)
	}

	files := s.Files()
	if len(files) != 1 {
		t.Fatalf("files: got %d, want 1", len(files))
	}
	if files[0].Type != "image/png" {
		t.Errorf("type: got %s, want image/png", files[0].Type)
	}

	page := f.get("/app/upload?session=" + s.ID().String()).Body.String()
	for _, want := range []string{"photo.png", "/api/previews/", "Uploaded Files (1/10)", "Crop image"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestAddFilesErrorEntry(t *testing.T) {
	f := newFixture(t, nil)
	s := f.openSession(t)

	f.upload(t, s, "clip.mp4", append([]byte{0, 0, 0, 0x18}, []byte("ftypmp42")...))

	page := f.get("/app/upload?session=" + s.ID().String()).Body.String()
	if !strings.Contains(page, "File type not supported") {
		t.Error("page missing unsupported type message")
	}
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(t, nil)
	s := f.openSession(t)

	f.upload(t, s, "a.txt", []byte("alpha"))
	f.upload(t, s, "b.txt", []byte("bravo"))

	first := s.Files()[0]
	rec := f.postForm("/app/upload/"+s.ID().String()+"/files/"+first.ID.String()+"/remove", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("remove status: got %d, want 303", rec.Code)
	}
	if got := len(s.Files()); got != 1 {
		t.Fatalf("files after remove: got %d, want 1", got)
	}

	rec = f.postForm("/app/upload/"+s.ID().String()+"/clear", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("clear status: got %d, want 303", rec.Code)
	}
	if got := len(s.Files()); got != 0 {
		t.Errorf("files after clear: got %d, want 0", got)
	}
}

func TestCropFlow(t *testing.T) {
	f := newFixture(t, nil)
	s := f.openSession(t)
	f.upload(t, s, "photo.png", pngBytes(t, 100, 80))
	file := s.Files()[0]

	cropURL := "/app/upload/" + s.ID().String() + "/crop/" + file.ID.String()

	rec := f.postForm(cropURL+"/open", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("open status: got %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != cropURL {
		t.Errorf("open location: got %s, want %s", loc, cropURL)
	}

	rec = f.get(cropURL)
	if rec.Code != http.StatusOK {
		t.Fatalf("show status: got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Crop Image") {
		t.Error("crop page missing title")
	}

	rec = f.postForm(cropURL, url.Values{
		"x": {"10"}, "y": {"10"}, "width": {"10"}, "height": {"10"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("small selection status: got %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), uploads.ErrSelectionTooSmall.Error()) {
		t.Error("crop page missing rejection reason")
	}

	rec = f.postForm(cropURL, url.Values{
		"x": {"0"}, "y": {"0"}, "width": {"60"}, "height": {"50"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("apply status: got %d, want 303", rec.Code)
	}

	cropped, ok := s.File(file.ID)
	if !ok {
		t.Fatal("file missing after crop")
	}
	if !cropped.Cropped {
		t.Error("file not marked cropped")
	}
	if cropped.Content.ContentType != "image/png" {
		t.Errorf("content type: got %s, want image/png", cropped.Content.ContentType)
	}
	if s.CropState().Open {
		t.Error("crop dialog still open after apply")
	}
}

func TestCropRejectsBadForm(t *testing.T) {
	f := newFixture(t, nil)
	s := f.openSession(t)
	f.upload(t, s, "photo.png", pngBytes(t, 100, 80))
	file := s.Files()[0]

	rec := f.postForm("/app/upload/"+s.ID().String()+"/crop/"+file.ID.String(), url.Values{
		"x": {"left"}, "y": {"0"}, "width": {"60"}, "height": {"60"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestCancelCrop(t *testing.T) {
	f := newFixture(t, nil)
	s := f.openSession(t)
	f.upload(t, s, "photo.png", pngBytes(t, 100, 80))
	file := s.Files()[0]

	cropURL := "/app/upload/" + s.ID().String() + "/crop/" + file.ID.String()
	f.postForm(cropURL+"/open", nil)

	rec := f.postForm(cropURL+"/cancel", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want 303", rec.Code)
	}
	if s.CropState().Open {
		t.Error("crop dialog still open after cancel")
	}
}

func TestCropIneligibleFile(t *testing.T) {
	f := newFixture(t, nil)
	s := f.openSession(t)
	f.upload(t, s, "notes.txt", []byte("plain text"))
	file := s.Files()[0]

	rec := f.postForm("/app/upload/"+s.ID().String()+"/crop/"+file.ID.String()+"/open", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", rec.Code)
	}
}

func TestShowCropIsReadOnly(t *testing.T) {
	f := newFixture(t, nil)
	s := f.openSession(t)
	f.upload(t, s, "a.png", pngBytes(t, 100, 80))
	f.upload(t, s, "b.png", pngBytes(t, 100, 80))
	a, b := s.Files()[0], s.Files()[1]

	base := "/app/upload/" + s.ID().String() + "/crop/"
	sessionURL := "/app/upload?session=" + s.ID().String()

	rec := f.get(base + a.ID.String())
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != sessionURL {
		t.Fatalf("closed dialog: got %d %s, want 302 to %s", rec.Code, rec.Header().Get("Location"), sessionURL)
	}
	if s.CropState().Open {
		t.Fatal("GET should not open the dialog")
	}

	f.postForm(base+a.ID.String()+"/open", nil)
	if _, err := s.CommitCrop(uploads.Rect{X: 0, Y: 0, Width: 60, Height: 60}); err != nil {
		t.Fatalf("CommitCrop() error = %v", err)
	}
	before := s.CropState()

	rec = f.get(base + b.ID.String())
	if rec.Code != http.StatusFound {
		t.Errorf("other file: got %d, want 302", rec.Code)
	}
	rec = f.get(base + a.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("open dialog: got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="width" min="50" step="any" value="60"`) {
		t.Error("crop page should show the committed selection")
	}

	after := s.CropState()
	if *after.FileID != a.ID || *after.Committed != *before.Committed {
		t.Errorf("state changed by GET: before %+v after %+v", before, after)
	}
}

func TestSignedOutRedirects(t *testing.T) {
	gate := auth.NewWithVerifier(
		&auth.Config{Enabled: true, CookieName: "__session", SignInURL: "/app/sign-in"},
		rejectingVerifier{},
		discardLogger(),
	)
	f := newFixture(t, gate)

	rec := f.get("/app/upload")
	if rec.Code != http.StatusFound {
		t.Fatalf("status: got %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/app/sign-in?redirect_url=%2Fapp%2Fupload" {
		t.Errorf("location: got %s", loc)
	}

	rec = f.get("/app/sign-in?redirect_url=%2Fapp%2Fupload")
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in status: got %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "You Need to be Signed in to do this.") {
		t.Error("sign-in page missing prompt")
	}
	if !strings.Contains(body, `href="/app/upload"`) {
		t.Error("sign-in page missing return link")
	}
}

func TestSignInRejectsExternalReturn(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/app/sign-in?redirect_url=%2F%2Fevil.example.com")
	if strings.Contains(rec.Body.String(), "evil.example.com") {
		t.Error("sign-in page links to an external host")
	}
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/app/missing?lang=fr")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<title>Page introuvable</title>", "Retour aux téléversements", `lang="fr"`} {
		if !strings.Contains(body, want) {
			t.Errorf("not-found page missing %q", want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/app/public/app.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), ".drop-zone") {
		t.Error("stylesheet content missing")
	}

	rec = f.get("/app/favicon.svg")
	if rec.Code != http.StatusOK {
		t.Fatalf("favicon status: got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "image/svg+xml") {
		t.Errorf("favicon content type: got %q", rec.Header().Get("Content-Type"))
	}
}

func TestWrongMethodIsNotAllowed(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/app/sign-in")
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in status: got %d, want 200", rec.Code)
	}

	rec = f.postForm("/app/sign-in", url.Values{})
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
