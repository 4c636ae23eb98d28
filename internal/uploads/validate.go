package uploads

import (
	"strings"

	"github.com/JaimeStill/lectern/pkg/formatting"
)

const msgTypeNotSupported = "File type not supported"

// Accepts reports whether contentType matches an accepted pattern. Patterns
// ending in "/*" match by prefix; others must match exactly.
func (c *Config) Accepts(contentType string) bool {
	for _, pattern := range c.Accept {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok && strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(contentType, prefix) {
				return true
			}
			continue
		}
		if contentType == pattern {
			return true
		}
	}
	return false
}

// Validate checks size before type and returns the failure kind and message,
// or an empty kind when the input is acceptable. The size limit is inclusive.
func (c *Config) Validate(size int64, contentType string) (ErrorKind, string) {
	limit := c.MaxSizeBytes()
	if size > limit {
		return ErrorSizeExceeded, "File size exceeds " + formatting.FormatFileSize(limit)
	}
	if !c.Accepts(contentType) {
		return ErrorUnsupportedType, msgTypeNotSupported
	}
	return "", ""
}
