package chat

import "strings"

// Matcher decides whether an input expresses one of the given tokens.
type Matcher interface {
	Match(input string, tokens []string) bool
}

// SubstringMatcher matches when the input contains any token, ignoring case.
type SubstringMatcher struct{}

// Match implements Matcher.
func (SubstringMatcher) Match(input string, tokens []string) bool {
	in := strings.ToLower(input)
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		if strings.Contains(in, tok) {
			return true
		}
	}
	return false
}
