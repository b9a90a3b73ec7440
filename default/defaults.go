// Package defaults provides embedded default assets (system prompt and config).
package defaults

import (
	_ "embed"
	"strings"
)

//go:embed system_prompt.md
var systemPrompt string

// SystemPrompt is the built-in preamble for the first turn of a transcript.
var SystemPrompt = strings.TrimRight(systemPrompt, " \t\r\n")

//go:embed default_config.toml
var DefaultConfigTOML []byte
