// Package reranker provides second-pass relevance scoring of a retrieved
// candidate pool against the original user context.
//
// Two strategies exist, selected by the rerank model's kind:
//
//   - external: a dedicated relevance-scoring API (ZeroEntropy) scores each
//     query-document pair and returns continuous, provider-defined scores.
//   - judge: an LLM is shown every candidate and asked for the best item ids
//     in order; kept ids receive ordinal rank-derived scores.
//
// The two score kinds have different semantics and must not be compared or
// summed across variants.
package reranker

import (
	"context"
	"errors"
	"net/http"

	"github.com/ksonoda/recommender/internal/llm"
	"github.com/ksonoda/recommender/internal/models"
)

// ErrUpstreamRerank is returned when the rerank provider itself fails
// (transport error or non-2xx status), as opposed to answering unusably.
var ErrUpstreamRerank = errors.New("rerank provider request failed")

// Candidate is one item from the retrieval pool. Callers pass candidates
// already deduplicated by item id.
type Candidate struct {
	ItemID string
	Title  string
	Text   string
}

// Result is a candidate with the reranker's score. For the external variant
// the score is the provider's continuous relevance value; for the judge
// variant it is an ordinal value derived from rank position.
type Result struct {
	Candidate
	Score float64
}

// Reranker re-orders a candidate pool by relevance to the query and returns
// at most numResults items. A result shorter than numResults is a degraded
// success, not an error.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, numResults int) ([]Result, error)
}

// Factory builds the right Reranker variant for a rerank model descriptor.
type Factory struct {
	llmClient    llm.LLM
	systemPrompt string

	zeAPIKey  string
	zeBaseURL string
	zeClient  *http.Client
}

// FactoryOption is a functional option for configuring Factory.
type FactoryOption func(*Factory)

// WithSystemPrompt sets the system prompt passed to judge rerankers.
func WithSystemPrompt(prompt string) FactoryOption {
	return func(f *Factory) {
		f.systemPrompt = prompt
	}
}

// WithZeroEntropyBaseURL overrides the ZeroEntropy API base URL.
func WithZeroEntropyBaseURL(url string) FactoryOption {
	return func(f *Factory) {
		f.zeBaseURL = url
	}
}

// WithZeroEntropyHTTPClient sets the HTTP client for ZeroEntropy calls.
func WithZeroEntropyHTTPClient(client *http.Client) FactoryOption {
	return func(f *Factory) {
		f.zeClient = client
	}
}

// NewFactory creates a reranker factory over the shared LLM client and the
// ZeroEntropy credentials.
func NewFactory(llmClient llm.LLM, zeroEntropyAPIKey string, opts ...FactoryOption) *Factory {
	f := &Factory{
		llmClient: llmClient,
		zeAPIKey:  zeroEntropyAPIKey,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// For returns the Reranker for a rerank model. The model's kind is the
// explicit discriminator between the two strategies.
func (f *Factory) For(model models.RerankModel) Reranker {
	switch model.Kind {
	case models.RerankExternal:
		zeOpts := []ZeroEntropyOption{WithZeroEntropyModel(model.Key)}
		if f.zeBaseURL != "" {
			zeOpts = append(zeOpts, WithBaseURL(f.zeBaseURL))
		}
		if f.zeClient != nil {
			zeOpts = append(zeOpts, WithHTTPClient(f.zeClient))
		}
		return NewZeroEntropyReranker(f.zeAPIKey, zeOpts...)
	default:
		return NewJudgeReranker(f.llmClient, model.Key, WithJudgeSystemPrompt(f.systemPrompt))
	}
}
