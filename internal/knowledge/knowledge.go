// Package knowledge provides the static context document the answering
// service is grounded on.
package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/chameleon/internal/i18n"
)

//go:embed default.yaml
var defaultYAML []byte

// Entry is one section of the knowledge document. An entry with keywords is
// only sent when a question mentions one of them or quotes its content.
type Entry struct {
	Path     string        `yaml:"path"`
	Content  string        `yaml:"content"`
	Language i18n.Language `yaml:"language,omitempty"`
	Keywords []string      `yaml:"keywords,omitempty"`
}

type file struct {
	Entries []Entry `yaml:"entries"`
}

// Base renders entries into per-language context documents. Entries without
// a language apply to every language.
type Base struct {
	entries []Entry
	docs    map[i18n.Language]string
}

// New builds a Base from entries. Blank entries are dropped.
func New(entries []Entry) *Base {
	b := &Base{docs: make(map[i18n.Language]string)}
	for _, e := range entries {
		e.Content = strings.TrimSpace(e.Content)
		if e.Content == "" {
			continue
		}
		if e.Language != "" {
			lang, ok := i18n.Normalize(string(e.Language))
			if !ok {
				continue
			}
			e.Language = lang
		}
		e.Keywords = normalizeKeywords(e.Keywords)
		b.entries = append(b.entries, e)
	}
	for _, lang := range i18n.Languages() {
		b.docs[lang] = b.render(lang, nil)
	}
	return b
}

// Default returns the built-in knowledge base.
func Default() *Base {
	b, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("knowledge: invalid built-in document: %v", err))
	}
	return b
}

// Parse decodes a YAML knowledge file.
func Parse(data []byte) (*Base, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge file: %w", err)
	}
	if len(f.Entries) == 0 {
		return nil, errors.New("knowledge file has no entries")
	}
	return New(f.Entries), nil
}

// LoadFile reads a YAML knowledge file from path.
func LoadFile(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}
	return Parse(data)
}

// Document returns the context document for lang. Unsupported languages get
// the English document.
func (b *Base) Document(lang i18n.Language) string {
	if doc, ok := b.docs[lang]; ok {
		return doc
	}
	return b.docs[i18n.Default]
}

// DocumentFor returns the context document for lang narrowed to the entries
// relevant to query. Entries without keywords are always kept.
func (b *Base) DocumentFor(lang i18n.Language, query string) string {
	if !i18n.Supported(lang) {
		lang = i18n.Default
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return b.Document(lang)
	}
	words := make(map[string]struct{})
	for _, w := range strings.Fields(query) {
		words[strings.Trim(w, ".,;:!?¿¡\"'()")] = struct{}{}
	}
	return b.render(lang, func(e Entry) bool {
		if len(e.Keywords) == 0 {
			return true
		}
		for _, k := range e.Keywords {
			if _, ok := words[k]; ok {
				return true
			}
		}
		return strings.Contains(strings.ToLower(e.Content), query)
	})
}

// Len returns the number of entries.
func (b *Base) Len() int { return len(b.entries) }

func (b *Base) render(lang i18n.Language, keep func(Entry) bool) string {
	var sb strings.Builder
	for _, e := range b.entries {
		if e.Language != "" && e.Language != lang {
			continue
		}
		if keep != nil && !keep(e) {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if e.Path != "" {
			sb.WriteString("From ")
			sb.WriteString(e.Path)
			sb.WriteString(":\n")
		}
		sb.WriteString(e.Content)
	}
	return sb.String()
}

func normalizeKeywords(in []string) []string {
	var out []string
	for _, k := range in {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}
