package tui

import (
	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/prompts"
)

func estimateTokens(text string) int {
	return prompts.EstimateTokens(text)
}

// getContextLimit returns the context window size for a model
func getContextLimit(model string) int {
	return config.ContextLimit(model)
}
