package embedder

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

// DefaultOpenRouterBaseURL is the OpenRouter API base URL.
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterEmbedder implements the Embedder interface against an
// OpenAI-compatible embeddings API. One request embeds the whole batch.
type OpenRouterEmbedder struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// OpenRouterOption is a functional option for configuring OpenRouterEmbedder.
type OpenRouterOption func(*OpenRouterEmbedder)

// WithBaseURL sets a custom base URL for the embeddings API.
func WithBaseURL(url string) OpenRouterOption {
	return func(e *OpenRouterEmbedder) {
		if url != "" {
			e.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OpenRouterOption {
	return func(e *OpenRouterEmbedder) {
		e.httpClient = client
	}
}

// NewOpenRouterEmbedder creates a new embeddings client.
func NewOpenRouterEmbedder(apiKey string, opts ...OpenRouterOption) *OpenRouterEmbedder {
	e := &OpenRouterEmbedder{
		baseURL: DefaultOpenRouterBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// embeddingsRequest represents the request body for the embeddings API.
type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingsResponse represents the response from the embeddings API. The
// provider declares the input position of each row in its index field.
type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds all texts in one call. Rows in the response are restored
// to input order by their index field; providers are not assumed to preserve
// request order.
func (e *OpenRouterEmbedder) EmbedBatch(ctx context.Context, texts []string, model string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(embeddingsRequest{
		Model: model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings API returned %d rows for %d inputs", len(result.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, row := range result.Data {
		if row.Index < 0 || row.Index >= len(texts) {
			return nil, fmt.Errorf("embeddings API returned out-of-range index %d", row.Index)
		}
		if vectors[row.Index] != nil {
			return nil, fmt.Errorf("embeddings API returned duplicate index %d", row.Index)
		}
		vec := make([]float32, len(row.Embedding))
		for i, v := range row.Embedding {
			vec[i] = float32(v)
		}
		vectors[row.Index] = vec
	}

	for i, vec := range vectors {
		if vec == nil {
			return nil, fmt.Errorf("embeddings API returned no row for input %d", i)
		}
	}

	return vectors, nil
}

// Ensure OpenRouterEmbedder implements Embedder interface.
var _ Embedder = (*OpenRouterEmbedder)(nil)
