// Package app serves the server-rendered upload pages: the signed-in upload
// dashboard, the crop form, and the sign-in prompt.
package app

import (
	"embed"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/lectern/internal/uploads"
	"github.com/JaimeStill/lectern/pkg/auth"
	"github.com/JaimeStill/lectern/pkg/i18n"
	"github.com/JaimeStill/lectern/pkg/middleware"
	"github.com/JaimeStill/lectern/pkg/module"
	"github.com/JaimeStill/lectern/pkg/routes"
	"github.com/JaimeStill/lectern/pkg/web"
)

//go:embed templates
var templateFS embed.FS

//go:embed public
var publicFS embed.FS

const layout = "app"

var (
	uploadView   = web.ViewDef{Route: "/upload", Template: "upload.html", Title: "upload.title", Bundle: "app"}
	cropView     = web.ViewDef{Route: "/upload/{session}/crop/{file}", Template: "crop.html", Title: "uploader.cropTitle", Bundle: "app"}
	signInView   = web.ViewDef{Route: "/sign-in", Template: "signin.html", Title: "account.signin", Bundle: "app"}
	notFoundView = web.ViewDef{Template: "not-found.html", Title: "errors.notFound", Bundle: "app"}
)

var views = []web.ViewDef{uploadView, cropView, signInView, notFoundView}

// Deps are the systems the pages render from.
type Deps struct {
	Uploads       uploads.System
	Catalog       *i18n.Catalog
	Gate          auth.Gate
	APIBasePath   string
	MaxUploadSize int64
	Logger        *slog.Logger
}

// NewModule creates the page module mounted at basePath.
func NewModule(basePath string, deps *Deps) (*module.Module, error) {
	ts, err := web.NewTemplateSet(
		templateFS, templateFS,
		"templates/layouts/*.html", "templates/views",
		basePath, views,
	)
	if err != nil {
		return nil, err
	}

	ts.SetDataFunc(func(r *http.Request, view web.ViewDef) web.ViewData {
		l := deps.Catalog.Negotiate(r)
		return web.ViewData{
			Title:  l.T(view.Title),
			Bundle: view.Bundle,
			Data:   pageData{L: l},
		}
	})

	p := newPages(basePath, ts, deps)
	router := buildRouter(p, ts, deps.Gate)

	m := module.New(basePath, router)
	m.Use(middleware.Logger(deps.Logger))
	return m, nil
}

func buildRouter(p *pages, ts *web.TemplateSet, gate auth.Gate) http.Handler {
	router := web.NewRouter()
	router.SetFallback(ts.ErrorHandler(layout, notFoundView, http.StatusNotFound))

	router.HandleFunc("GET /public/", web.DistServer(publicFS, "public", "/public"))
	router.HandleFunc("GET /favicon.svg", web.PublicFile(publicFS, "public", "favicon.svg"))
	router.HandleFunc("GET /{$}", p.index)
	router.HandleFunc("GET "+signInView.Route, p.signIn)

	router.Register(routes.Group{
		Prefix:     "/upload",
		Middleware: []func(http.Handler) http.Handler{auth.RequirePage(gate)},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: p.upload},
			{Method: "POST", Pattern: "/{session}/files", Handler: p.add},
			{Method: "POST", Pattern: "/{session}/files/{file}/remove", Handler: p.remove},
			{Method: "POST", Pattern: "/{session}/clear", Handler: p.clear},
			{Method: "GET", Pattern: "/{session}/crop/{file}", Handler: p.showCrop},
			{Method: "POST", Pattern: "/{session}/crop/{file}/open", Handler: p.openCrop},
			{Method: "POST", Pattern: "/{session}/crop/{file}", Handler: p.applyCrop},
			{Method: "POST", Pattern: "/{session}/crop/{file}/cancel", Handler: p.cancelCrop},
		},
	})

	return router
}
