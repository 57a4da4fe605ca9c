package service

// RecommendRequest is the input for one recommendation run.
type RecommendRequest struct {
	UserContext    string `json:"user_context"`
	LLMModel       string `json:"llm_model"`
	RerankModel    string `json:"rerank_model"`
	EmbeddingModel string `json:"embedding_model"`
}

// Recommendation is a single ranked item in the response. Score semantics
// depend on the rerank variant used and are not comparable across variants.
type Recommendation struct {
	ItemID string  `json:"item_id"`
	Title  string  `json:"title"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// LatencyBreakdown reports per-stage elapsed time in milliseconds.
type LatencyBreakdown struct {
	CandidateGenerationMS float64 `json:"candidate_generation_ms"`
	EmbeddingMS           float64 `json:"embedding_ms"`
	VectorSearchMS        float64 `json:"vector_search_ms"`
	RerankingMS           float64 `json:"reranking_ms"`
	TotalMS               float64 `json:"total_ms"`
}

// DebugInfo carries pipeline internals for transparency.
type DebugInfo struct {
	RequestID           string   `json:"request_id"`
	SyntheticCandidates []string `json:"synthetic_candidates"`
	NumRetrieved        int      `json:"num_retrieved"`
	LLMModelUsed        string   `json:"llm_model_used"`
	RerankModelUsed     string   `json:"rerank_model_used"`
	EmbeddingModelUsed  string   `json:"embedding_model_used"`
}

// RecommendResponse is the output of one recommendation run.
type RecommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Latency         LatencyBreakdown `json:"latency"`
	Debug           DebugInfo        `json:"debug"`
}

// EmbeddingModelInfo describes one embedding model for the /models endpoint.
type EmbeddingModelInfo struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Dimension   int    `json:"dimension"`
	Loaded      bool   `json:"loaded"`
}

// ModelsResponse lists every model the service accepts.
type ModelsResponse struct {
	LLMModels       []string             `json:"llm_models"`
	RerankModels    []string             `json:"rerank_models"`
	EmbeddingModels []EmbeddingModelInfo `json:"embedding_models"`
}

// HealthResponse reports service health.
type HealthResponse struct {
	Status      string `json:"status"`
	IndexLoaded bool   `json:"index_loaded"`
}
