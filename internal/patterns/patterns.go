// Package patterns holds the static matching rules and keyword tables the
// pipeline scores and categorizes signals with. The tables live in an
// embedded YAML document so they can be tuned without touching pipeline code.
package patterns

import (
	_ "embed"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultYAML []byte

// GeneralCategory is the fallback category for signals nothing else claims.
const GeneralCategory = "general"

// Rule is a single compiled matching rule with the confidence a lone match
// can claim.
type Rule struct {
	Pattern    string
	Confidence float64

	re *regexp.Regexp
}

// Match reports whether the rule matches the given text. Rules that failed
// to compile never match.
func (r *Rule) Match(text string) bool {
	return r.re != nil && r.re.MatchString(text)
}

// Library is the full set of rules and keyword tables, grouped by category.
// Immutable after load.
type Library struct {
	Version           int
	Categories        map[string][]Rule
	KeywordCategories map[string][]string
	ThemeKeywords     map[string][]string
	MonetizationTerms []string
	CompetitorTerms   []string

	stopWords map[string]struct{}
}

// libraryDoc mirrors the YAML document shape.
type libraryDoc struct {
	Version    int `yaml:"version"`
	Categories map[string][]struct {
		Pattern    string  `yaml:"pattern"`
		Confidence float64 `yaml:"confidence"`
	} `yaml:"categories"`
	KeywordCategories map[string][]string `yaml:"keyword_categories"`
	ThemeKeywords     map[string][]string `yaml:"theme_keywords"`
	MonetizationTerms []string            `yaml:"monetization_terms"`
	CompetitorTerms   []string            `yaml:"competitor_terms"`
	StopWords         []string            `yaml:"stop_words"`
}

var (
	defaultLib  *Library
	defaultOnce sync.Once
)

// Default returns the library parsed from the embedded YAML. The embedded
// document is validated by tests, so a parse failure here is a build defect;
// it yields an empty library and an error log rather than a panic.
func Default() *Library {
	defaultOnce.Do(func() {
		lib, err := Parse(defaultYAML)
		if err != nil {
			zap.L().Error("patterns: embedded library failed to parse", zap.Error(err))
			lib = &Library{stopWords: map[string]struct{}{}}
		}
		defaultLib = lib
	})
	return defaultLib
}

// Parse loads a library from YAML. Rules whose regexp fails to compile are
// logged and skipped; one bad rule never aborts the load.
func Parse(data []byte) (*Library, error) {
	var doc libraryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "patterns: unmarshal library")
	}

	lib := &Library{
		Version:           doc.Version,
		Categories:        make(map[string][]Rule, len(doc.Categories)),
		KeywordCategories: doc.KeywordCategories,
		ThemeKeywords:     doc.ThemeKeywords,
		MonetizationTerms: doc.MonetizationTerms,
		CompetitorTerms:   doc.CompetitorTerms,
		stopWords:         make(map[string]struct{}, len(doc.StopWords)),
	}

	for category, rules := range doc.Categories {
		compiled := make([]Rule, 0, len(rules))
		for _, r := range rules {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				zap.L().Warn("patterns: skipping malformed rule",
					zap.String("category", category),
					zap.String("pattern", r.Pattern),
					zap.Error(err),
				)
				continue
			}
			compiled = append(compiled, Rule{Pattern: r.Pattern, Confidence: r.Confidence, re: re})
		}
		lib.Categories[category] = compiled
	}

	for _, w := range doc.StopWords {
		lib.stopWords[strings.ToLower(w)] = struct{}{}
	}

	return lib, nil
}

// IsStopWord reports whether a lowercase token is on the stop-word list.
func (l *Library) IsStopWord(token string) bool {
	_, ok := l.stopWords[token]
	return ok
}

// RuleCount returns the total number of compiled rules across categories.
func (l *Library) RuleCount() int {
	n := 0
	for _, rules := range l.Categories {
		n += len(rules)
	}
	return n
}

// CategoryFor picks a category for the given text by keyword overlap. The
// category with the most whole-word keyword hits wins, ties broken by
// category name for determinism; the signal's own category hint breaks a
// total miss, and GeneralCategory is the floor.
func (l *Library) CategoryFor(text, hint string) string {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		words[w] = struct{}{}
	}

	best := ""
	bestHits := 0
	for category, keywords := range l.KeywordCategories {
		hits := 0
		for _, kw := range keywords {
			if _, ok := words[kw]; ok {
				hits++
			}
		}
		if hits > bestHits || (hits == bestHits && hits > 0 && category < best) {
			best = category
			bestHits = hits
		}
	}

	if bestHits > 0 {
		return best
	}
	if hint != "" {
		return strings.ToLower(hint)
	}
	return GeneralCategory
}

// MentionsMonetization reports whether the text contains any price-related term.
func (l *Library) MentionsMonetization(text string) bool {
	return containsAny(text, l.MonetizationTerms)
}

// MentionsCompetitor reports whether the text contains any competitor-indicating phrase.
func (l *Library) MentionsCompetitor(text string) bool {
	return containsAny(text, l.CompetitorTerms)
}

func containsAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
