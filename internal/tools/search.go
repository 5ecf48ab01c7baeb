package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// SearchInput is the search_documents tool's input schema.
type SearchInput struct {
	Query string `json:"query" jsonschema_description:"The search query, in English."`
	TopK  int    `json:"top_k,omitempty" jsonschema_description:"Maximum number of results. Default 10."`
	Type  string `json:"type,omitempty" jsonschema_description:"Filter by document type: video or document. Empty searches both."`
}

type searchHit struct {
	Name   string  `json:"name"`
	Text   string  `json:"text"`
	Type   string  `json:"type"`
	Source string  `json:"source"`
	Score  float64 `json:"_score"`
}

var collapseNewlines = regexp.MustCompile(`\n{2,}`)

func (h searchHit) String() string {
	text := collapseNewlines.ReplaceAllString(h.Text, "\n\n")
	if h.Type == "document" {
		return fmt.Sprintf("**%s**\n```\n%s\n```\n", h.Name, text)
	}
	return fmt.Sprintf("**[%s](%s)**\n```\n%s\n```\n", h.Name, h.Source, text)
}

// SearchDocuments runs a hybrid semantic search against the Marqo index.
// An unconfigured endpoint degrades to a polite message so the advisory
// keeps working without document search.
func (k *Kit) SearchDocuments(ctx *ai.ToolContext, input SearchInput) (string, error) {
	if k.marqoEndpoint == "" {
		k.logger.Warn("document search requested but no endpoint configured")
		return "Document search is not configured.", nil
	}

	topK := input.TopK
	if topK <= 0 || topK > 50 {
		topK = 10
	}
	filter := "(type:video OR type:document)"
	if input.Type == "video" || input.Type == "document" {
		filter = fmt.Sprintf("(type:%s)", input.Type)
	}

	body, err := json.Marshal(map[string]any{
		"q":            input.Query,
		"limit":        topK,
		"filter":       filter,
		"searchMethod": "HYBRID",
		"hybridParameters": map[string]any{
			"retrievalMethod": "disjunction",
			"rankingMethod":   "rrf",
			"alpha":           0.5,
			"rrfK":            60,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode search request: %w", err)
	}

	searchURL := fmt.Sprintf("%s/indexes/%s/search",
		strings.TrimSuffix(k.marqoEndpoint, "/"), k.marqoIndex)
	req, err := http.NewRequestWithContext(ctx.Context, http.MethodPost, searchURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		k.logger.Error("document search failed", "error", err)
		return "Document search is unavailable right now.", nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		k.logger.Error("document search returned non-200", "status", resp.StatusCode)
		return "Document search is unavailable right now.", nil
	}

	var result struct {
		Hits []searchHit `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	if len(result.Hits) == 0 {
		return fmt.Sprintf("No results found for `%s`", input.Query), nil
	}

	rendered := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		rendered[i] = hit.String()
	}
	return fmt.Sprintf("> Search Results for `%s`\n\n%s",
		input.Query, strings.Join(rendered, "\n\n----\n\n")), nil
}
