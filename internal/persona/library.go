package persona

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Library holds the built-in personas plus any found in a directory.
// Personas on disk override built-ins with the same name.
type Library struct {
	personas map[string]*Persona
	dir      string
	skipped  []error
}

// DefaultDir returns ~/.config/narrator/personas.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "narrator", "personas"), nil
}

// NewLibrary loads built-ins and every *.md file in dir. A missing directory
// yields a library with built-ins only. Unreadable files are skipped and
// reported by Skipped.
func NewLibrary(dir string) *Library {
	lib := &Library{
		personas: make(map[string]*Persona),
		dir:      dir,
	}

	for i := range Builtin {
		p := Builtin[i]
		lib.personas[p.Name] = &p
	}

	if dir == "" {
		return lib
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return lib
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			continue
		}
		p, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			lib.skipped = append(lib.skipped, err)
			continue
		}
		lib.personas[p.Name] = p
	}

	return lib
}

// Get returns a persona by name.
func (l *Library) Get(name string) *Persona {
	if l == nil {
		return nil
	}
	return l.personas[name]
}

// List returns all personas sorted by name.
func (l *Library) List() []*Persona {
	if l == nil {
		return nil
	}
	result := make([]*Persona, 0, len(l.personas))
	for _, p := range l.personas {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Dir returns the directory personas were loaded from.
func (l *Library) Dir() string {
	if l == nil {
		return ""
	}
	return l.dir
}

// Skipped returns errors for persona files that could not be loaded.
func (l *Library) Skipped() []error {
	if l == nil {
		return nil
	}
	return l.skipped
}

// Resolve picks the persona text for a request: inline text wins, then the
// named persona. An empty result lets the prompt builder apply its default.
func (l *Library) Resolve(inline, name string) string {
	if strings.TrimSpace(inline) != "" {
		return inline
	}
	if p := l.Get(name); p != nil {
		return p.Body
	}
	return ""
}
