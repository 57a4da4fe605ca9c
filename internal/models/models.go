// Package models defines the closed registries of embedding and reranking
// models the service accepts. The registries are constructed once and never
// mutated; request validation is a lookup against them rather than a runtime
// dictionary miss deep inside the pipeline.
package models

// ProviderKind tags how an embedding model's vectors are produced.
type ProviderKind string

const (
	// ProviderRemoteAPI models are embedded through a hosted HTTP API.
	ProviderRemoteAPI ProviderKind = "remote-api"

	// ProviderLocalInference models run on a local inference server.
	ProviderLocalInference ProviderKind = "local-inference"
)

// EmbeddingModel describes one embedding model: the registry key used for
// index files and API requests, the provider-facing model name, and the
// vector dimension its matrices must have.
type EmbeddingModel struct {
	Key         string
	Name        string
	DisplayName string
	Dimension   int
	Provider    ProviderKind
}

// RerankKind selects the reranking strategy for a rerank model.
type RerankKind string

const (
	// RerankExternal models call a dedicated relevance-scoring API.
	RerankExternal RerankKind = "external"

	// RerankJudge models ask an LLM to rank candidates directly.
	RerankJudge RerankKind = "judge"
)

// RerankModel describes one reranking model and its strategy.
type RerankModel struct {
	Key  string
	Kind RerankKind
}

var embeddingModels = []EmbeddingModel{
	{
		Key:         "openai-small",
		Name:        "openai/text-embedding-3-small",
		DisplayName: "OpenAI text-embedding-3-small",
		Dimension:   1536,
		Provider:    ProviderRemoteAPI,
	},
	{
		Key:         "nomic",
		Name:        "nomic-embed-text",
		DisplayName: "Nomic Embed Text (local)",
		Dimension:   768,
		Provider:    ProviderLocalInference,
	},
	{
		Key:         "minilm",
		Name:        "all-minilm",
		DisplayName: "All-MiniLM (local)",
		Dimension:   384,
		Provider:    ProviderLocalInference,
	},
}

var rerankModels = []RerankModel{
	{Key: "zerank-2", Kind: RerankExternal},
	{Key: "openai/gpt-4o-mini", Kind: RerankJudge},
	{Key: "anthropic/claude-3-haiku", Kind: RerankJudge},
}

// EmbeddingModels returns every registered embedding model in registry order.
func EmbeddingModels() []EmbeddingModel {
	out := make([]EmbeddingModel, len(embeddingModels))
	copy(out, embeddingModels)
	return out
}

// EmbeddingByKey looks up an embedding model by registry key.
func EmbeddingByKey(key string) (EmbeddingModel, bool) {
	for _, m := range embeddingModels {
		if m.Key == key {
			return m, true
		}
	}
	return EmbeddingModel{}, false
}

// RerankModels returns every registered rerank model in registry order.
func RerankModels() []RerankModel {
	out := make([]RerankModel, len(rerankModels))
	copy(out, rerankModels)
	return out
}

// RerankByKey looks up a rerank model by key.
func RerankByKey(key string) (RerankModel, bool) {
	for _, m := range rerankModels {
		if m.Key == key {
			return m, true
		}
	}
	return RerankModel{}, false
}
