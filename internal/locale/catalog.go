package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/rs/zerolog/log"
	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.*.yaml
var defaultFiles embed.FS

// Catalog holds the user-visible strings for one language, loaded from
// the embedded defaults and optionally overridden from a directory.
// Values are rendered with text/template
type Catalog struct {
	mu   sync.RWMutex
	data map[string]string // flattened dot-keys -> template text
}

// New loads the embedded messages for the language and then applies
// overrides from dir if provided. Unknown languages fall back to "en"
func New(language string, overrideDir string) (*Catalog, error) {

	c := &Catalog{data: map[string]string{}}

	name := fmt.Sprintf("messages.%s.yaml", strings.ToLower(strings.TrimSpace(language)))
	raw, err := fs.ReadFile(defaultFiles, name)
	if err != nil {
		log.Warn().Msg(fmt.Sprintf("No messages for language %q, falling back to en", language))
		if raw, err = fs.ReadFile(defaultFiles, "messages.en.yaml"); err != nil {
			return nil, fmt.Errorf("read embedded messages: %w", err)
		}
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}

	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Render looks a key up and renders it with the provided variables.
// A missing key or a broken template renders as the key itself, so a
// catalog hole never hides a bot reply entirely
func (c *Catalog) Render(key string, vars map[string]any) string {

	c.mu.RLock()
	text, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		log.Warn().Msg(fmt.Sprintf("Message key %q is not in the catalog", key))
		return key
	}

	tmpl, err := template.New(key).Option("missingkey=error").Parse(text)
	if err != nil {
		log.Error().Msg(fmt.Sprintf("Message %q does not parse: %v", key, err))
		return key
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		log.Error().Msg(fmt.Sprintf("Message %q does not render: %v", key, err))
		return key
	}
	return sb.String()
}

func (c *Catalog) applyDir(dir string) error {

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read override dir: %w", err)
	}
	// Sort for deterministic order
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, ".yaml") || strings.HasSuffix(n, ".yml") {
			files = append(files, n)
		}
	}
	sort.Strings(files)
	for _, n := range files {
		raw, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return fmt.Errorf("read override %s: %w", n, err)
		}
		if err := c.applyYAML(raw); err != nil {
			return fmt.Errorf("override %s: %w", n, err)
		}
	}
	return nil
}

func (c *Catalog) applyYAML(raw []byte) error {

	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parse messages: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	flatten("", tree, c.data)
	return nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for key, value := range node {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(full, v, out)
		case string:
			out[full] = v
		default:
			out[full] = fmt.Sprint(v)
		}
	}
}
