package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Candidate offers a language. A candidate with nothing to offer, for example
// a missing header or a host page that cannot be inspected, returns
// ok == false; that is an expected outcome, not an error.
type Candidate func() (Language, bool)

var (
	supportedLangs = Languages()
	matcher        = newMatcher(supportedLangs)
)

func newMatcher(langs []Language) language.Matcher {
	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		tags = append(tags, language.Make(string(l)))
	}
	return language.NewMatcher(tags)
}

// Resolve returns the first language offered by candidates, or fallback.
func Resolve(fallback Language, candidates ...Candidate) Language {
	for _, p := range candidates {
		if p == nil {
			continue
		}
		if lang, ok := p(); ok {
			return lang
		}
	}
	if Supported(fallback) {
		return fallback
	}
	return Default
}

// CodeCandidate offers code when it names a supported language.
func CodeCandidate(code string) Candidate {
	return func() (Language, bool) {
		return Normalize(code)
	}
}

// AcceptLanguageCandidate offers the best supported match for an
// Accept-Language header value.
func AcceptLanguageCandidate(header string) Candidate {
	return func() (Language, bool) {
		if strings.TrimSpace(header) == "" {
			return "", false
		}
		tags, _, err := language.ParseAcceptLanguage(header)
		if err != nil || len(tags) == 0 {
			return "", false
		}
		_, idx, conf := matcher.Match(tags...)
		if conf == language.No || idx < 0 || idx >= len(supportedLangs) {
			return "", false
		}
		return supportedLangs[idx], true
	}
}
