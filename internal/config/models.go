package config

import "strings"

// ModelInfo describes a generative model offered in setup and settings.
type ModelInfo struct {
	ID            string
	Name          string
	Description   string
	ContextWindow int
}

var Models = []ModelInfo{
	{
		ID:            "gemini-3-pro-preview",
		Name:          "Gemini 3 Pro (preview)",
		Description:   "Richest narratives, slowest",
		ContextWindow: 1000000,
	},
	{
		ID:            "gemini-3-flash-preview",
		Name:          "Gemini 3 Flash (preview)",
		Description:   "Fast, good quality",
		ContextWindow: 1000000,
	},
	{
		ID:            "gemini-2.5-pro",
		Name:          "Gemini 2.5 Pro",
		Description:   "Stable, capable",
		ContextWindow: 1000000,
	},
	{
		ID:            "gemini-2.5-flash",
		Name:          "Gemini 2.5 Flash",
		Description:   "Stable, cheap",
		ContextWindow: 1000000,
	},
	{
		ID:            "gemini-1.5-flash",
		Name:          "Gemini 1.5 Flash",
		Description:   "Legacy",
		ContextWindow: 1000000,
	},
}

func GetModel(id string) *ModelInfo {
	for _, m := range Models {
		if m.ID == id {
			return &m
		}
	}
	return nil
}

// ContextLimit returns the context window for a model, falling back to a
// conservative default for unknown names.
func ContextLimit(model string) int {
	if m := GetModel(model); m != nil {
		return m.ContextWindow
	}
	if strings.Contains(strings.ToLower(model), "gemini") {
		return 1000000
	}
	return 8000
}
