// Package output writes decoded containers as JSON tables, one directory
// per container laid out as <root>/<group>/<name>/.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"dexscope/internal/dex"
	"dexscope/internal/source"
)

// Tables lists the files written for every container.
var Tables = []string{"strings", "types", "protos", "fields", "methods", "classes"}

// Dir returns the directory a container's tables are written to.
func Dir(root string, src source.Source) string {
	return filepath.Join(root, src.Group, src.Name)
}

// WriteContainer writes the six tables of c and returns the directory.
func WriteContainer(root string, src source.Source, c *dex.Container) (string, error) {
	dir := Dir(root, src)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tables := map[string]any{
		"strings": c.Strings,
		"types":   c.Types,
		"protos":  c.Protos,
		"fields":  c.Fields,
		"methods": c.Methods,
		"classes": c.Classes,
	}
	for _, name := range Tables {
		if err := writeJSON(filepath.Join(dir, name+".json"), tables[name]); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// Marshal renders v the way the table files are written.
func Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func writeJSON(path string, v any) error {
	b, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
