// Package prompts provides the LLM prompt texts. They are stored as JSON files
// embedded at compile time, one object of key to text per file.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Scene planning prompt keys in scenes.json
const (
	ScenesFile           = "scenes.json"
	KeySceneListPreamble = "scene-list-description"
	KeySceneListRules    = "scene-list-rules"
)

var loadAll = sync.OnceValues(func() (map[string]map[string]string, error) {
	return parseFiles(promptFiles)
})

func parseFiles(fsys fs.FS) (map[string]map[string]string, error) {
	names, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, err
	}
	files := make(map[string]map[string]string, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}
		var texts map[string]string
		if err := json.Unmarshal(data, &texts); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
		}
		files[name] = texts
	}
	return files, nil
}

// Get retrieves a prompt by filename and key
func Get(filename, key string) (string, error) {
	files, err := loadAll()
	if err != nil {
		return "", err
	}
	texts, ok := files[filename]
	if !ok {
		return "", fmt.Errorf("prompt file %q not found", filename)
	}
	text, ok := texts[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return text, nil
}

// MustGet is Get for prompts required at initialization time; it panics on a missing prompt
func MustGet(filename, key string) string {
	text, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return text
}

// Lines retrieves a prompt holding one item per line, dropping blank lines
func Lines(filename, key string) ([]string, error) {
	text, err := Get(filename, key)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// List returns the sorted prompt keys of a file
func List(filename string) ([]string, error) {
	files, err := loadAll()
	if err != nil {
		return nil, err
	}
	texts, ok := files[filename]
	if !ok {
		return nil, fmt.Errorf("prompt file %q not found", filename)
	}
	keys := make([]string, 0, len(texts))
	for key := range texts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
