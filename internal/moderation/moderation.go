// Package moderation classifies farmer queries before generation.
//
// The verdict is advisory context, not a hard gate: it is rendered to text
// and folded into the turn's prompt so the model can steer its answer, and
// it is never persisted as transcript content. If classification itself
// fails the turn does not proceed; there is deliberately no fail-open path.
package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vistaar-ai/vistaar/internal/log"
)

// Category is the closed moderation category enumeration.
type Category string

const (
	CategoryValidAgricultural Category = "valid_agricultural"
	CategoryNonAgricultural   Category = "invalid_non_agricultural"
	CategoryExternalReference Category = "invalid_external_reference"
	CategoryCompoundMixed     Category = "invalid_compound_mixed"
	CategoryUnsafeIllegal     Category = "unsafe_illegal"
	CategoryPolitical         Category = "political_controversial"
	CategoryRoleObfuscation   Category = "role_obfuscation"
)

// Verdict is the structured moderation result for a single query.
type Verdict struct {
	Category Category `json:"category" jsonschema_description:"Moderation category of the user's message." jsonschema:"enum=valid_agricultural,enum=invalid_non_agricultural,enum=invalid_external_reference,enum=invalid_compound_mixed,enum=unsafe_illegal,enum=political_controversial,enum=role_obfuscation"`
	Action   string   `json:"action" jsonschema_description:"Recommended action for the query, always in English."`
}

var titleCaser = cases.Title(language.English)

// String renders the verdict as the prompt-context line injected into the
// turn.
func (v Verdict) String() string {
	category := titleCaser.String(strings.ReplaceAll(string(v.Category), "_", " "))
	return fmt.Sprintf("**Moderation Recommendation:** %s (%s)", v.Action, category)
}

// Valid reports whether the query was classified as an answerable
// agricultural question.
func (v Verdict) Valid() bool {
	return v.Category == CategoryValidAgricultural
}

// Gate wraps the model-backed classifier. It issues exactly one structured
// generation call per query.
type Gate struct {
	g      *genkit.Genkit
	model  string
	logger log.Logger
}

// NewGate creates a moderation gate using the given model.
func NewGate(g *genkit.Genkit, modelName string, logger log.Logger) *Gate {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Gate{g: g, model: modelName, logger: logger}
}

// Classify returns the moderation verdict for text. Errors propagate to the
// caller and abort the turn.
func (m *Gate) Classify(ctx context.Context, text string) (Verdict, error) {
	verdict, _, err := genkit.GenerateData[Verdict](ctx, m.g,
		ai.WithModelName(m.model),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(text),
	)
	if err != nil {
		return Verdict{}, fmt.Errorf("moderation classify: %w", err)
	}

	m.logger.Debug("query moderated",
		"category", verdict.Category,
		"query_length", len(text))
	return *verdict, nil
}
