package auth

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/lectern/pkg/handlers"
)

// RequireAPI rejects signed-out requests with 401 and a JSON error body.
func RequireAPI(g Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			id, ok := g.Identify(r)
			if !ok {
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrSignedOut)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequirePage redirects signed-out requests to the sign-in URL, returning
// to the requested page afterwards. The return target is the request line as
// received, so it keeps any prefix a module router stripped.
func RequirePage(g Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := g.Identify(r)
			if !ok {
				returnTo := r.RequestURI
				if returnTo == "" {
					returnTo = r.URL.RequestURI()
				}
				http.Redirect(w, r, g.SignInURL(returnTo), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
