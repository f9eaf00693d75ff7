// Package locales embeds the translation message files.
package locales

import "embed"

//go:embed active.*.toml
var FS embed.FS
