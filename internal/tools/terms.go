package tools

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

//go:embed assets/term_glossary.json
var glossaryJSON []byte

// termPair is one glossary entry.
type termPair struct {
	En              string `json:"en"`
	Mr              string `json:"mr"`
	Transliteration string `json:"transliteration"`
}

func (t termPair) String() string {
	return fmt.Sprintf("%s -> %s (%s)", t.En, t.Mr, t.Transliteration)
}

func loadGlossary() ([]termPair, error) {
	var pairs []termPair
	if err := json.Unmarshal(glossaryJSON, &pairs); err != nil {
		return nil, fmt.Errorf("load term glossary: %w", err)
	}
	return pairs, nil
}

// TermsInput is the search_terms tool's input schema.
type TermsInput struct {
	Text       string  `json:"text" jsonschema_description:"The term to look up."`
	MaxResults int     `json:"max_results,omitempty" jsonschema_description:"Maximum number of matches. Default 5."`
	Threshold  float64 `json:"similarity_threshold,omitempty" jsonschema_description:"Minimum similarity between 0 and 1. Default 0.7."`
	Language   string  `json:"language,omitempty" jsonschema_description:"Restrict matching to one field: en, mr, or transliteration."`
}

// similarity is a normalized Levenshtein ratio in [0, 1].
func similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// SearchTerms fuzzy-matches the glossary across English, Marathi, and
// transliterated forms.
func (k *Kit) SearchTerms(_ *ai.ToolContext, input TermsInput) (string, error) {
	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	threshold := input.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.7
	}

	text := strings.ToLower(strings.TrimSpace(input.Text))
	if text == "" {
		return "No search text given.", nil
	}

	type match struct {
		pair  termPair
		score float64
	}
	var matches []match
	for _, pair := range k.glossary {
		score := 0.0
		if input.Language == "" || input.Language == "en" {
			score = max(score, similarity(text, strings.ToLower(pair.En)))
		}
		if input.Language == "" || input.Language == "mr" {
			score = max(score, similarity(text, strings.ToLower(pair.Mr)))
		}
		if input.Language == "" || input.Language == "transliteration" {
			score = max(score, similarity(text, strings.ToLower(pair.Transliteration)))
		}
		if score >= threshold {
			matches = append(matches, match{pair: pair, score: score})
		}
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No matching terms found for `%s`", text), nil
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("%s [%.0f%%]", m.pair, m.score*100)
	}
	return fmt.Sprintf("Matching Terms for `%s`\n\n%s", text, strings.Join(lines, "\n")), nil
}
