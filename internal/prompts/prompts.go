package prompts

import (
	_ "embed"
	"strings"
)

// Instructions holds the task description and output schema sent after the persona.
//
//go:embed narrative.md
var Instructions string

// DefaultPersona is used when no persona context is configured.
const DefaultPersona = "You are a master storyteller narrating a gameplay session based on raw event logs."

// DataLogLabel introduces the encoded rows in the prompt.
const DataLogLabel = "DATA LOG:"

// BuildNarrativePrompt composes persona, instructions, schema and the encoded
// data block into a single prompt.
func BuildNarrativePrompt(persona, dataBlock string) string {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(Instructions))
	b.WriteString("\n\n")
	b.WriteString(DataLogLabel)
	b.WriteString("\n")
	b.WriteString(dataBlock)
	return b.String()
}

// EstimateTokens returns an approximate token count (~4 chars per token).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
