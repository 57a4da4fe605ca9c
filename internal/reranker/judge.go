package reranker

import (
	"context"
	"fmt"
	"strings"

	"github.com/ksonoda/recommender/internal/llm"
	"github.com/ksonoda/recommender/internal/parse"
)

const (
	// excerptLen caps how much of each candidate's text goes into the prompt.
	excerptLen = 200

	// ordinalStep is subtracted from the score per rank position.
	ordinalStep = 0.1

	judgeMaxTokens = 512
)

// JudgeReranker implements the judgment variant: it shows an LLM every
// candidate and asks for the best item ids in descending relevance order.
// The model's answer goes through the lenient array parser; ids that match
// no candidate are silently dropped, so the result may hold fewer than
// numResults items.
type JudgeReranker struct {
	llmClient    llm.LLM
	model        string
	systemPrompt string
}

// JudgeOption is a functional option for configuring JudgeReranker.
type JudgeOption func(*JudgeReranker)

// WithJudgeSystemPrompt sets the system prompt prefixed to the rerank prompt.
func WithJudgeSystemPrompt(prompt string) JudgeOption {
	return func(r *JudgeReranker) {
		r.systemPrompt = prompt
	}
}

// NewJudgeReranker creates an LLM-as-judge reranker using the given model.
func NewJudgeReranker(llmClient llm.LLM, model string, opts ...JudgeOption) *JudgeReranker {
	r := &JudgeReranker{
		llmClient: llmClient,
		model:     model,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Rerank asks the LLM for the top item ids and assigns ordinal scores
// descending from 1.0 by rank position.
func (r *JudgeReranker) Rerank(ctx context.Context, query string, candidates []Candidate, numResults int) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	prompt := r.buildPrompt(query, candidates, numResults)

	response, err := r.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		Model:       r.model,
		Temperature: 0.0, // Deterministic ranking
		MaxTokens:   judgeMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamRerank, err)
	}

	ids, err := parse.StringArray(response)
	if err != nil {
		// A ParseError, not an upstream error: the provider answered but
		// the answer was unusable.
		return nil, err
	}

	if len(ids) > numResults {
		ids = ids[:numResults]
	}

	byID := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ItemID] = c
	}

	seen := make(map[string]bool, len(ids))
	ranked := make([]Result, 0, len(ids))
	for pos, id := range ids {
		c, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ranked = append(ranked, Result{
			Candidate: c,
			Score:     1.0 - float64(pos)*ordinalStep,
		})
	}

	return ranked, nil
}

// buildPrompt enumerates every candidate with a capped text excerpt plus the
// explicit set of valid ids.
func (r *JudgeReranker) buildPrompt(query string, candidates []Candidate, numResults int) string {
	var sb strings.Builder

	if r.systemPrompt != "" {
		sb.WriteString(r.systemPrompt)
		sb.WriteString("\n\n")
	}

	sb.WriteString("# User Context\n")
	sb.WriteString(query)
	sb.WriteString("\n\n# Available Items\n")

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ItemID
		text := c.Text
		if len(text) > excerptLen {
			text = text[:excerptLen]
		}
		fmt.Fprintf(&sb, "%d. [%s] %s: %s\n", i+1, c.ItemID, c.Title, text)
	}

	fmt.Fprintf(&sb, "\nValid item IDs: %s\n", strings.Join(ids, ", "))
	fmt.Fprintf(&sb, `
Select the top %d most relevant items for this user.
Return ONLY a JSON array of the item IDs in order of relevance (most relevant first).

Response format: ["item_id_1", "item_id_2", ...]`, numResults)

	return sb.String()
}

// Ensure JudgeReranker implements Reranker interface.
var _ Reranker = (*JudgeReranker)(nil)
