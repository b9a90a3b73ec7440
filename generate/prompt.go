package generate

import (
	"log/slog"
	"os"
	"strings"

	askai "github.com/Paranoid-AF/askai"
	defaults "github.com/Paranoid-AF/askai/default"
)

// BuildPrompt frames question as the next user turn of transcript and opens
// the assistant turn. A blank transcript starts a new conversation with the
// system preamble.
func BuildPrompt(transcript, question, systemPrompt string) string {
	var sb strings.Builder
	if askai.IsBlank(transcript) {
		sb.WriteString(askai.SystemTag)
		sb.WriteString(systemPrompt)
		sb.WriteString(askai.EndTag)
	} else {
		sb.WriteString(transcript)
	}
	sb.WriteString(askai.UserTag)
	sb.WriteString(question)
	sb.WriteString(askai.EndTag)
	sb.WriteString(askai.AssistantTag)
	return sb.String()
}

// LoadSystemPrompt resolves the system preamble.
// Priority: prompt.system in config > custom prompt file > built-in default.
func LoadSystemPrompt(cfg *askai.Config) string {
	if cfg != nil && strings.TrimSpace(cfg.Prompt.System) != "" {
		return cfg.Prompt.System
	}
	if custom := loadCustomPrompt(); custom != "" {
		return custom
	}
	return defaults.SystemPrompt
}

// loadCustomPrompt loads a custom system prompt.
// Returns empty string if no custom prompt exists or it is blank.
func loadCustomPrompt() string {
	promptPath := askai.SystemPromptPath()
	data, err := os.ReadFile(promptPath)
	if err != nil {
		return ""
	}
	prompt := strings.TrimRight(string(data), " \t\r\n")
	if strings.TrimSpace(prompt) == "" {
		return ""
	}
	slog.Debug("loaded custom system prompt", "path", promptPath)
	return prompt
}
