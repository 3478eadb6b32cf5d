package agent

import (
	"context"

	"github.com/dataflywheel/chatgate/internal/config"
	"github.com/dataflywheel/chatgate/internal/log"
)

// PromptSource fetches a named prompt from the tool server. *catalog.Client
// satisfies this.
type PromptSource interface {
	Prompt(ctx context.Context, name string, args map[string]string) (string, error)
}

// SystemPrompt resolves the session's system prompt. The tool server's prompt
// wins when it can be fetched; any failure, including the prompt simply not
// existing, falls back to the configured default so a degraded tool server
// never blocks conversation.
func SystemPrompt(ctx context.Context, src PromptSource, cfg *config.Config, logger log.Logger) string {
	text, err := src.Prompt(ctx, cfg.SystemPromptName, nil)
	if err != nil {
		logger.Warn("system prompt unavailable, using default",
			"prompt", cfg.SystemPromptName, "error", err)
		return cfg.SystemPrompt
	}
	return text
}
