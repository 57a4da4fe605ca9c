package reranker

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ksonoda/recommender/internal/llm"
	"github.com/ksonoda/recommender/internal/parse"
)

// fakeLLM returns a canned response and records the last prompt.
type fakeLLM struct {
	response string
	err      error

	lastPrompt string
	lastOpts   llm.GenerateOptions
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	f.lastPrompt = prompt
	f.lastOpts = opts
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testCandidates() []Candidate {
	return []Candidate{
		{ItemID: "a", Title: "Item A", Text: "about a"},
		{ItemID: "b", Title: "Item B", Text: "about b"},
		{ItemID: "c", Title: "Item C", Text: "about c"},
	}
}

func TestJudgeReranker_OrdersAndScores(t *testing.T) {
	fake := &fakeLLM{response: `["b", "a"]`}
	r := NewJudgeReranker(fake, "test-model")

	results, err := r.Rerank(context.Background(), "query", testCandidates(), 2)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ItemID != "b" || results[1].ItemID != "a" {
		t.Errorf("wrong order: %q, %q", results[0].ItemID, results[1].ItemID)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 || math.Abs(results[1].Score-0.9) > 1e-9 {
		t.Errorf("wrong ordinal scores: %f, %f", results[0].Score, results[1].Score)
	}
	if fake.lastOpts.Temperature != 0 {
		t.Errorf("judge reranking should use temperature 0, got %f", fake.lastOpts.Temperature)
	}
}

func TestJudgeReranker_UnknownIDsDropped(t *testing.T) {
	fake := &fakeLLM{response: `["b", "nonexistent", "c"]`}
	r := NewJudgeReranker(fake, "test-model")

	results, err := r.Rerank(context.Background(), "query", testCandidates(), 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results after dropping unknown id, got %d", len(results))
	}
	if results[0].ItemID != "b" || results[1].ItemID != "c" {
		t.Errorf("wrong survivors: %q, %q", results[0].ItemID, results[1].ItemID)
	}
	// Ordinal scores step by position in the provider's list, so the
	// dropped id still consumes a rank.
	if math.Abs(results[1].Score-0.8) > 1e-9 {
		t.Errorf("expected score 0.8 for position 2, got %f", results[1].Score)
	}
}

func TestJudgeReranker_FencedResponse(t *testing.T) {
	fake := &fakeLLM{response: "```json\n[\"a\"]\n```"}
	r := NewJudgeReranker(fake, "test-model")

	results, err := r.Rerank(context.Background(), "query", testCandidates(), 1)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(results) != 1 || results[0].ItemID != "a" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestJudgeReranker_TruncatesToNumResults(t *testing.T) {
	fake := &fakeLLM{response: `["a", "b", "c"]`}
	r := NewJudgeReranker(fake, "test-model")

	results, err := r.Rerank(context.Background(), "query", testCandidates(), 2)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected truncation to 2 results, got %d", len(results))
	}
}

func TestJudgeReranker_DuplicateIDsKeptOnce(t *testing.T) {
	fake := &fakeLLM{response: `["a", "a", "b"]`}
	r := NewJudgeReranker(fake, "test-model")

	results, err := r.Rerank(context.Background(), "query", testCandidates(), 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 unique results, got %d", len(results))
	}
	if results[0].ItemID != "a" || results[1].ItemID != "b" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestJudgeReranker_UnparsableResponse(t *testing.T) {
	fake := &fakeLLM{response: "I'm sorry, I cannot rank these items."}
	r := NewJudgeReranker(fake, "test-model")

	_, err := r.Rerank(context.Background(), "query", testCandidates(), 2)
	var parseErr *parse.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *parse.ParseError, got %v", err)
	}
	if errors.Is(err, ErrUpstreamRerank) {
		t.Error("parse failure must not look like an upstream failure")
	}
}

func TestJudgeReranker_UpstreamError(t *testing.T) {
	fake := &fakeLLM{err: errors.New("connection refused")}
	r := NewJudgeReranker(fake, "test-model")

	_, err := r.Rerank(context.Background(), "query", testCandidates(), 2)
	if !errors.Is(err, ErrUpstreamRerank) {
		t.Errorf("expected ErrUpstreamRerank, got %v", err)
	}
}

func TestJudgeReranker_PromptListsValidIDs(t *testing.T) {
	fake := &fakeLLM{response: `["a"]`}
	r := NewJudgeReranker(fake, "test-model", WithJudgeSystemPrompt("You recommend careers."))

	if _, err := r.Rerank(context.Background(), "query", testCandidates(), 1); err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if !strings.Contains(fake.lastPrompt, "Valid item IDs: a, b, c") {
		t.Error("prompt missing valid id set")
	}
	if !strings.Contains(fake.lastPrompt, "You recommend careers.") {
		t.Error("prompt missing system prompt")
	}
	if !strings.HasPrefix(fake.lastPrompt, "You recommend careers.") {
		t.Error("system prompt should lead the prompt")
	}
}

func TestJudgeReranker_LongTextTruncatedInPrompt(t *testing.T) {
	fake := &fakeLLM{response: `["long"]`}
	r := NewJudgeReranker(fake, "test-model")

	longText := strings.Repeat("x", 1000)
	cands := []Candidate{{ItemID: "long", Title: "Long", Text: longText}}
	if _, err := r.Rerank(context.Background(), "query", cands, 1); err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if strings.Contains(fake.lastPrompt, longText) {
		t.Error("candidate text should be excerpted in the prompt")
	}
	if !strings.Contains(fake.lastPrompt, strings.Repeat("x", excerptLen)) {
		t.Error("prompt should contain the capped excerpt")
	}
}

func TestJudgeReranker_NoCandidates(t *testing.T) {
	fake := &fakeLLM{response: `["a"]`}
	r := NewJudgeReranker(fake, "test-model")

	results, err := r.Rerank(context.Background(), "query", nil, 2)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for no candidates, got %v", results)
	}
	if fake.lastPrompt != "" {
		t.Error("no LLM call expected for empty candidate pool")
	}
}
