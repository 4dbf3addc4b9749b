// Package extract derives a business idea from a cluster: dominant theme,
// top keywords, and templated problem/solution statements.
package extract

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
	"github.com/Nardo758/Project-Spark-sub000/internal/patterns"
)

const (
	minTokenLen   = 3
	maxTokenLen   = 30
	topKeywordsN  = 5
	sampleTitlesN = 3
)

// Extractor derives BusinessIdeas from clusters using the library's
// stop-word and theme-keyword tables.
type Extractor struct {
	lib *patterns.Library
}

// New creates an Extractor over the given library.
func New(lib *patterns.Library) *Extractor {
	return &Extractor{lib: lib}
}

// Extract tokenizes the cluster's text, ranks the surviving tokens by
// frequency, and composes templated problem/solution statements. Words that
// appear in any signal title are treated as brand names and excluded so
// proper nouns do not leak into the theme.
func (e *Extractor) Extract(cluster *model.Cluster, loc model.LocationResolution) model.BusinessIdea {
	category := cluster.Category()
	if category == "" {
		category = patterns.GeneralCategory
	}

	titleWords := make(map[string]struct{})
	for _, s := range cluster.Signals {
		for _, tok := range tokenize(s.Signal.Title) {
			titleWords[tok] = struct{}{}
		}
	}

	freq := make(map[string]int)
	for _, s := range cluster.Signals {
		for _, tok := range tokenize(s.Signal.Text()) {
			if len(tok) < minTokenLen || len(tok) > maxTokenLen {
				continue
			}
			if isNumeral(tok) {
				continue
			}
			if e.lib.IsStopWord(tok) {
				continue
			}
			if _, brand := titleWords[tok]; brand {
				continue
			}
			freq[tok]++
		}
	}

	ranked := rankByFrequency(freq)
	theme := e.pickTheme(ranked, category)

	top := ranked
	if len(top) > topKeywordsN {
		top = top[:topKeywordsN]
	}

	var titles []string
	for _, s := range cluster.Signals {
		if s.Signal.Title == "" {
			continue
		}
		titles = append(titles, s.Signal.Title)
		if len(titles) == sampleTitlesN {
			break
		}
	}

	label := categoryLabel(category)
	location := loc.City
	if location == "" {
		location = "the area"
	}

	return model.BusinessIdea{
		Category:          category,
		ThemeKeyword:      theme,
		TopKeywords:       top,
		LocationLabel:     location,
		ProblemStatement:  fmt.Sprintf("People in %s repeatedly report unmet demand around %q in the %s space.", location, theme, label),
		SolutionStatement: fmt.Sprintf("Launch a %s-focused %s business serving %s.", theme, label, location),
		SampleTitles:      titles,
		SignalCount:       cluster.Size(),
	}
}

// pickTheme prefers the highest-ranked token that is also a known theme
// keyword for the category, then the most frequent token, then the
// category name itself.
func (e *Extractor) pickTheme(ranked []string, category string) string {
	themes := make(map[string]struct{})
	for _, kw := range e.lib.ThemeKeywords[category] {
		themes[kw] = struct{}{}
	}

	for _, tok := range ranked {
		if _, ok := themes[tok]; ok {
			return tok
		}
	}
	if len(ranked) > 0 {
		return ranked[0]
	}
	return category
}

// rankByFrequency orders tokens by descending count, ties broken
// alphabetically for determinism.
func rankByFrequency(freq map[string]int) []string {
	tokens := make([]string, 0, len(freq))
	for tok := range freq {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if freq[tokens[i]] != freq[tokens[j]] {
			return freq[tokens[i]] > freq[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	return tokens
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isNumeral(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// categoryLabel renders a category key as human-readable text.
func categoryLabel(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}
