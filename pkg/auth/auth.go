// Package auth gates requests on a signed-in identity. Identities come from
// OIDC ID tokens presented as a bearer token or session cookie; the token
// issuer owns sign-in itself.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
)

// Identity is the signed-in principal.
type Identity struct {
	Subject string `json:"subject"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Gate reports whether a request is signed in and where to send it otherwise.
type Gate interface {
	Start(lc *lifecycle.Coordinator) error
	// Identify returns the request's identity, or false when signed out.
	Identify(r *http.Request) (*Identity, bool)
	// SignInURL builds the sign-in redirect that returns to returnTo.
	SignInURL(returnTo string) string
}

// TokenVerifier is satisfied by *oidc.IDTokenVerifier.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// New creates the gate described by cfg. A disabled gate signs every
// request in as cfg.LocalSubject.
func New(cfg *Config, logger *slog.Logger) Gate {
	if !cfg.Enabled {
		return &openGate{
			identity:  &Identity{Subject: cfg.LocalSubject},
			signInURL: cfg.SignInURL,
		}
	}
	return &oidcGate{
		cfg:    cfg,
		logger: logger.With("system", "auth"),
	}
}

// NewWithVerifier creates an OIDC gate with a preconfigured verifier,
// skipping provider discovery.
func NewWithVerifier(cfg *Config, verifier TokenVerifier, logger *slog.Logger) Gate {
	return &oidcGate{
		cfg:      cfg,
		logger:   logger.With("system", "auth"),
		verifier: verifier,
	}
}

type openGate struct {
	identity  *Identity
	signInURL string
}

func (g *openGate) Start(lc *lifecycle.Coordinator) error { return nil }

func (g *openGate) Identify(r *http.Request) (*Identity, bool) {
	return g.identity, true
}

func (g *openGate) SignInURL(returnTo string) string {
	return buildSignInURL(g.signInURL, returnTo)
}

type oidcGate struct {
	cfg    *Config
	logger *slog.Logger

	mu       sync.RWMutex
	verifier TokenVerifier
}

// Start discovers the issuer's keys during startup. Until discovery
// succeeds every request is signed out.
func (g *oidcGate) Start(lc *lifecycle.Coordinator) error {
	if g.currentVerifier() != nil {
		return nil
	}

	g.logger.Info("starting auth gate", "issuer", g.cfg.Issuer)

	lc.OnStartup(func() {
		provider, err := oidc.NewProvider(lc.Context(), g.cfg.Issuer)
		if err != nil {
			g.logger.Error("oidc discovery failed", "issuer", g.cfg.Issuer, "error", err)
			return
		}

		g.mu.Lock()
		g.verifier = provider.Verifier(&oidc.Config{ClientID: g.cfg.ClientID})
		g.mu.Unlock()

		g.logger.Info("auth gate ready", "issuer", g.cfg.Issuer)
	})

	return nil
}

func (g *oidcGate) Identify(r *http.Request) (*Identity, bool) {
	verifier := g.currentVerifier()
	if verifier == nil {
		return nil, false
	}

	raw := g.rawToken(r)
	if raw == "" {
		return nil, false
	}

	token, err := verifier.Verify(r.Context(), raw)
	if err != nil {
		g.logger.Debug("token rejected", "error", err)
		return nil, false
	}

	var claims struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		g.logger.Warn("token claims unreadable", "error", err)
		return nil, false
	}

	return &Identity{
		Subject: token.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
	}, true
}

func (g *oidcGate) SignInURL(returnTo string) string {
	return buildSignInURL(g.cfg.SignInURL, returnTo)
}

func (g *oidcGate) currentVerifier() TokenVerifier {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.verifier
}

func (g *oidcGate) rawToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(g.cfg.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func buildSignInURL(base, returnTo string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	if returnTo != "" {
		q := u.Query()
		q.Set("redirect_url", returnTo)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by the gate middleware.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// ErrSignedOut is reported to API clients without an identity.
var ErrSignedOut = errors.New("sign in required")
