// Package locales embeds the translation tables served by the application.
package locales

import "embed"

// FS holds one <lang>.toml table per supported language.
//
//go:embed *.toml
var FS embed.FS
