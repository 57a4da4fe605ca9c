package llm

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

const (
	// DefaultOpenRouterBaseURL is the OpenRouter API endpoint. OpenRouter is
	// OpenAI-compatible, so the same client works against any endpoint that
	// speaks the chat completions protocol.
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is the default LLM model to use.
	DefaultModel = "openai/gpt-4o-mini"
)

// OpenRouterClient implements the LLM interface against an OpenAI-compatible
// chat completions API.
type OpenRouterClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	model      string
}

// OpenRouterOption is a functional option for configuring OpenRouterClient.
type OpenRouterOption func(*OpenRouterClient)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(url string) OpenRouterOption {
	return func(c *OpenRouterClient) {
		if url != "" {
			c.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.httpClient = client
	}
}

// WithModel sets the default model for the client.
func WithModel(model string) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.model = model
	}
}

// NewOpenRouterClient creates a new chat completions client with the given options.
func NewOpenRouterClient(apiKey string, opts ...OpenRouterOption) *OpenRouterClient {
	c := &OpenRouterClient{
		baseURL: DefaultOpenRouterBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		model: DefaultModel,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest represents the request body for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatResponse represents the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

// Generate sends a prompt to the chat completions API and returns the
// response text of the first choice.
func (c *OpenRouterClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	var messages []chatMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat completions API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat completions API returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// Ensure OpenRouterClient implements LLM interface.
var _ LLM = (*OpenRouterClient)(nil)
