package routes

import (
	"net/http"

	"github.com/JaimeStill/lectern/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler. An empty Method
// matches every method. OpenAPI documents the route; nil leaves it out of
// the generated document.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}

func (r Route) pattern(prefix string) string {
	if r.Method == "" {
		return prefix + r.Pattern
	}
	return r.Method + " " + prefix + r.Pattern
}
