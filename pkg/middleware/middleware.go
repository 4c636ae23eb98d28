// Package middleware provides the HTTP middleware stack along with CORS and
// request logging middleware.
package middleware

import "net/http"

// System manages an ordered stack of HTTP middleware. The first middleware
// added is the outermost.
type System interface {
	Use(mw func(http.Handler) http.Handler)
	Apply(handler http.Handler) http.Handler
	Len() int
}

type mw struct {
	stack []func(http.Handler) http.Handler
}

// New creates a System seeded with the given middleware in order.
func New(initial ...func(http.Handler) http.Handler) System {
	stack := make([]func(http.Handler) http.Handler, 0, len(initial))
	return &mw{stack: append(stack, initial...)}
}

func (m *mw) Use(fn func(http.Handler) http.Handler) {
	m.stack = append(m.stack, fn)
}

func (m *mw) Apply(handler http.Handler) http.Handler {
	for i := len(m.stack) - 1; i >= 0; i-- {
		handler = m.stack[i](handler)
	}
	return handler
}

func (m *mw) Len() int {
	return len(m.stack)
}
