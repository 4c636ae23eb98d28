package web

import (
	"net/http"

	"github.com/JaimeStill/lectern/pkg/routes"
)

// Router wraps http.ServeMux with a fallback for paths no pattern matches.
type Router struct {
	mux      *http.ServeMux
	fallback http.HandlerFunc
}

// NewRouter creates a Router with default ServeMux behavior.
func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

// SetFallback configures the handler for unmatched routes.
func (r *Router) SetFallback(handler http.HandlerFunc) {
	r.fallback = handler
}

// Handle registers a handler for the given pattern.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
}

// HandleFunc registers a handler function for the given pattern.
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.mux.HandleFunc(pattern, handler)
}

// Register adds route groups, including their middleware, to the router.
func (r *Router) Register(groups ...routes.Group) {
	routes.Register(r.mux, groups...)
}

// ServeHTTP dispatches to the mux. Requests no pattern matches go to the
// fallback when one is set. Known paths requested with the wrong method keep
// the mux's 405 so clients see the allowed methods.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.fallback != nil && !r.matches(req) {
		r.fallback.ServeHTTP(w, req)
		return
	}
	r.mux.ServeHTTP(w, req)
}

func (r *Router) matches(req *http.Request) bool {
	if _, pattern := r.mux.Handler(req); pattern != "" {
		return true
	}
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		if method == req.Method {
			continue
		}
		probe := req.Clone(req.Context())
		probe.Method = method
		if _, pattern := r.mux.Handler(probe); pattern != "" {
			return true
		}
	}
	return false
}
