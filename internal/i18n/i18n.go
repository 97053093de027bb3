// Package i18n holds the per-language prompt table used by the chat widget.
package i18n

import (
	"sort"
	"strings"
)

// Language is a supported UI language code.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
	French  Language = "fr"
	German  Language = "de"
	Italian Language = "it"
)

// Default is used whenever a language cannot be resolved.
const Default = English

// Strings is one row of the prompt table. AskCompany and ContactSuccess carry
// a single {name} placeholder.
type Strings struct {
	HeaderTitle          string `json:"header_title"`
	InputPlaceholder     string `json:"input_placeholder"`
	Greeting             string `json:"greeting"`
	ContactOfferTrigger  string `json:"-"`
	NotFound             string `json:"-"`
	ContactInitiate      string `json:"-"`
	AskCompany           string `json:"-"`
	AskEmail             string `json:"-"`
	AskPhone             string `json:"-"`
	InvalidEmail         string `json:"-"`
	GenericError         string `json:"-"`
	ContactFlowError     string `json:"-"`
	ContactSuccess       string `json:"-"`
	AffirmativeResponses string `json:"-"`
	ContactTriggers      string `json:"-"`
	Skip                 string `json:"skip"`
}

// Affirmatives returns the affirmative tokens as a list.
func (s Strings) Affirmatives() []string {
	return splitTokens(s.AffirmativeResponses)
}

// Triggers returns the contact trigger tokens as a list.
func (s Strings) Triggers() []string {
	return splitTokens(s.ContactTriggers)
}

// Supported reports whether lang has a row in the table.
func Supported(lang Language) bool {
	_, ok := table[lang]
	return ok
}

// Languages returns all supported codes in a stable order.
func Languages() []Language {
	out := make([]Language, 0, len(table))
	for lang := range table {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Normalize maps a raw code such as "ES" or "es-MX" to a supported language.
func Normalize(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	lang := Language(code)
	if !Supported(lang) {
		return "", false
	}
	return lang, true
}

// Lookup returns the row for lang, falling back to English.
func Lookup(lang Language) Strings {
	if s, ok := table[lang]; ok {
		return s
	}
	return table[Default]
}

// Interpolate replaces the {name} placeholder in template.
func Interpolate(template, name string) string {
	return strings.ReplaceAll(template, "{name}", name)
}

func splitTokens(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
