package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona is the context text placed at the top of every narrative prompt.
type Persona struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Path        string `yaml:"-"` // empty for built-ins
	Body        string `yaml:"-"`
}

// Builtin personas shipped with narrator.
var Builtin = []Persona{
	{
		Name:        "chronarch",
		Description: "Ancient observer narrating a Void Weaver session",
		Body: "You are the Chronarch, an ancient observer of the Great Loom. Narrate this 'Void Weaver' session. " +
			"Interpret 'Silk' as a mystical resource, 'Stitches' as building energy, and 'Knots' as finishing moves. " +
			"Describe the Loom-Walker's journey through nodes like a grand tapestry being woven.",
	},
	{
		Name:        "storyteller",
		Description: "Plain storyteller for any event log",
		Body:        "You are a master storyteller narrating a gameplay session based on raw event logs.",
	},
}

// Parse reads a persona document: optional YAML front matter between "---"
// lines followed by the persona text.
func Parse(content []byte) (*Persona, error) {
	var p Persona

	text := string(content)
	if strings.HasPrefix(text, "---") {
		parts := strings.SplitN(text, "---", 3)
		if len(parts) == 3 {
			if err := yaml.Unmarshal([]byte(parts[1]), &p); err != nil {
				return nil, fmt.Errorf("invalid front matter: %w", err)
			}
			text = parts[2]
		}
	}

	p.Body = strings.TrimSpace(text)
	if p.Body == "" {
		return nil, fmt.Errorf("persona has no body")
	}
	return &p, nil
}

// LoadFile reads a persona from disk. The file name without extension is used
// when the front matter has no name.
func LoadFile(path string) (*Persona, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	p.Path = path
	return p, nil
}
