package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultZeroEntropyBaseURL is the ZeroEntropy API endpoint.
const DefaultZeroEntropyBaseURL = "https://api.zeroentropy.dev/v1"

// ZeroEntropyReranker implements the external-score variant using
// ZeroEntropy's rerank API. The provider scores every query-document pair
// with a cross-encoder and returns continuous relevance scores; higher is
// better, and the scale is provider-defined rather than bounded to [0, 1].
type ZeroEntropyReranker struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// ZeroEntropyOption is a functional option for configuring ZeroEntropyReranker.
type ZeroEntropyOption func(*ZeroEntropyReranker)

// WithBaseURL sets a custom base URL for the ZeroEntropy API.
func WithBaseURL(url string) ZeroEntropyOption {
	return func(r *ZeroEntropyReranker) {
		if url != "" {
			r.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithZeroEntropyModel sets the rerank model to request.
func WithZeroEntropyModel(model string) ZeroEntropyOption {
	return func(r *ZeroEntropyReranker) {
		r.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ZeroEntropyOption {
	return func(r *ZeroEntropyReranker) {
		r.httpClient = client
	}
}

// NewZeroEntropyReranker creates a new ZeroEntropy reranker.
func NewZeroEntropyReranker(apiKey string, opts ...ZeroEntropyOption) *ZeroEntropyReranker {
	r := &ZeroEntropyReranker{
		baseURL: DefaultZeroEntropyBaseURL,
		apiKey:  apiKey,
		model:   "zerank-2",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// rerankRequest represents the request body for the rerank API.
type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

// rerankResponse represents the response from the rerank API. Each result's
// index refers back to the position in the submitted documents list.
type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank submits "title: text" documents to the provider and maps the scored
// positions back to candidates, keeping the provider's order.
func (r *ZeroEntropyReranker) Rerank(ctx context.Context, query string, candidates []Candidate, numResults int) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Title + ": " + c.Text
	}

	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      numResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/models/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamRerank, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamRerank, resp.StatusCode, string(respBody))
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrUpstreamRerank, err)
	}

	ranked := make([]Result, 0, len(result.Results))
	for _, res := range result.Results {
		if res.Index < 0 || res.Index >= len(candidates) {
			return nil, fmt.Errorf("%w: out-of-range document index %d", ErrUpstreamRerank, res.Index)
		}
		ranked = append(ranked, Result{
			Candidate: candidates[res.Index],
			Score:     res.RelevanceScore,
		})
	}

	if len(ranked) > numResults {
		ranked = ranked[:numResults]
	}
	return ranked, nil
}

// Ensure ZeroEntropyReranker implements Reranker interface.
var _ Reranker = (*ZeroEntropyReranker)(nil)
