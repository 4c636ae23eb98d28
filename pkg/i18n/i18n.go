// Package i18n provides dotted-key translation lookup over nested TOML tables
// with Accept-Language negotiation.
package i18n

import (
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// Provider resolves translation keys for a single language.
type Provider interface {
	T(key string) string
	Tf(key string, pairs ...any) string
	Language() string
}

// Catalog holds translation tables keyed by language code.
type Catalog struct {
	mu       sync.RWMutex
	fallback string
	tables   map[string]map[string]any
	langs    []string
	matcher  language.Matcher
}

// NewCatalog creates an empty catalog that negotiates to fallback when no
// language matches.
func NewCatalog(fallback string) *Catalog {
	return &Catalog{
		fallback: fallback,
		tables:   make(map[string]map[string]any),
	}
}

// LoadFS creates a catalog from every <lang>.toml file at the root of fsys.
func LoadFS(fsys fs.FS, fallback string) (*Catalog, error) {
	files, err := fs.Glob(fsys, "*.toml")
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}

	c := NewCatalog(fallback)
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", file, err)
		}
		lang := strings.TrimSuffix(path.Base(file), ".toml")
		if err := c.Add(lang, data); err != nil {
			return nil, err
		}
	}

	if _, ok := c.tables[fallback]; !ok {
		return nil, fmt.Errorf("fallback language %q has no locale file", fallback)
	}

	return c, nil
}

// Add parses a TOML translation table for lang, replacing any existing table.
func (c *Catalog) Add(lang string, data []byte) error {
	var table map[string]any
	if err := toml.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("parse locale %s: %w", lang, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables[lang] = table
	if !slices.Contains(c.langs, lang) {
		c.langs = append(c.langs, lang)
	}
	c.rebuildMatcher()
	return nil
}

// Languages returns the loaded language codes, fallback first.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ordered()
}

// Table returns the raw translation tree for lang.
func (c *Catalog) Table(lang string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[lang]
	return t, ok
}

// Localizer returns a Provider for lang, matching loosely ("es-MX" to "es")
// and falling back to the catalog default.
func (c *Catalog) Localizer(lang string) *Localizer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resolved := c.match(lang)
	return &Localizer{lang: resolved, table: c.tables[resolved]}
}

// Negotiate picks a language for the request from the lang query parameter,
// then the language cookie, then Accept-Language.
func (c *Catalog) Negotiate(r *http.Request) *Localizer {
	if v := r.URL.Query().Get("lang"); v != "" {
		return c.Localizer(v)
	}
	if cookie, err := r.Cookie("language"); err == nil && cookie.Value != "" {
		return c.Localizer(cookie.Value)
	}
	return c.Localizer(r.Header.Get("Accept-Language"))
}

func (c *Catalog) match(accept string) string {
	if _, ok := c.tables[accept]; ok {
		return accept
	}
	if c.matcher == nil || accept == "" {
		return c.fallback
	}

	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return c.fallback
	}

	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.fallback
	}
	return c.ordered()[idx]
}

func (c *Catalog) ordered() []string {
	ordered := make([]string, 0, len(c.langs))
	if _, ok := c.tables[c.fallback]; ok {
		ordered = append(ordered, c.fallback)
	}
	for _, l := range c.langs {
		if l != c.fallback {
			ordered = append(ordered, l)
		}
	}
	return ordered
}

func (c *Catalog) rebuildMatcher() {
	ordered := c.ordered()
	tags := make([]language.Tag, len(ordered))
	for i, l := range ordered {
		tags[i] = language.Make(l)
	}
	c.matcher = language.NewMatcher(tags)
}

// Localizer resolves keys against one language table.
type Localizer struct {
	lang  string
	table map[string]any
}

// Language returns the resolved language code.
func (l *Localizer) Language() string {
	return l.lang
}

// T walks the dotted key through nested tables. Unresolved keys, and keys
// that name a table rather than a string, return the key itself.
func (l *Localizer) T(key string) string {
	var current any = l.table
	for part := range strings.SplitSeq(key, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return key
		}
		if current, ok = node[part]; !ok {
			return key
		}
	}

	if s, ok := current.(string); ok {
		return s
	}
	return key
}

// Tf resolves key and substitutes {name} placeholders from alternating
// name/value pairs: Tf("uploader.limits", "max", 10, "size", "10 MB").
func (l *Localizer) Tf(key string, pairs ...any) string {
	s := l.T(key)
	if len(pairs) < 2 {
		return s
	}

	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, fmt.Sprintf("{%v}", pairs[i]), fmt.Sprint(pairs[i+1]))
	}
	return strings.NewReplacer(oldnew...).Replace(s)
}
