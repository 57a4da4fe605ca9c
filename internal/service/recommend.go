// Package service orchestrates the recommendation pipeline: synthetic
// candidate generation, embedding, aggregated vector retrieval, and
// reranking.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ksonoda/recommender/internal/catalog"
	"github.com/ksonoda/recommender/internal/config"
	"github.com/ksonoda/recommender/internal/embedder"
	"github.com/ksonoda/recommender/internal/llm"
	"github.com/ksonoda/recommender/internal/models"
	"github.com/ksonoda/recommender/internal/parse"
	"github.com/ksonoda/recommender/internal/reranker"
	"github.com/ksonoda/recommender/internal/vectorindex"
)

// Pipeline stage names, used to tag errors and latency measurements.
const (
	StageValidate = "validation"
	StageGenerate = "candidate_generation"
	StageEmbed    = "embedding"
	StageSearch   = "vector_search"
	StageRerank   = "reranking"
)

// ErrInvalidModel is returned when a requested model is not in the
// configured allow-lists. No upstream call is attempted.
var ErrInvalidModel = errors.New("model not available")

// StageError tags a pipeline failure with the stage it happened in. A
// failure in one stage aborts all later stages.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Embedders holds one embedder per provider kind.
type Embedders struct {
	Remote embedder.Embedder
	Local  embedder.Embedder
}

// For returns the embedder for a provider kind, or nil if none is wired.
func (e Embedders) For(kind models.ProviderKind) embedder.Embedder {
	switch kind {
	case models.ProviderRemoteAPI:
		return e.Remote
	case models.ProviderLocalInference:
		return e.Local
	default:
		return nil
	}
}

// RerankerFactory builds the reranker variant for a rerank model.
type RerankerFactory interface {
	For(model models.RerankModel) reranker.Reranker
}

// RecommendService runs the recommendation pipeline over the shared catalog
// and provider clients. It holds no per-request state and is safe for
// concurrent use.
type RecommendService struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	llmClient llm.LLM
	embedders Embedders
	rerankers RerankerFactory
	logger    *slog.Logger
}

// NewRecommendService creates a new RecommendService.
func NewRecommendService(
	cfg *config.Config,
	cat *catalog.Catalog,
	llmClient llm.LLM,
	embedders Embedders,
	rerankers RerankerFactory,
	logger *slog.Logger,
) *RecommendService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendService{
		cfg:       cfg,
		catalog:   cat,
		llmClient: llmClient,
		embedders: embedders,
		rerankers: rerankers,
		logger:    logger,
	}
}

// Recommend runs the full pipeline for one user context. Stages run strictly
// in sequence; the first failure aborts the rest and is returned as a
// *StageError naming the failing stage.
func (s *RecommendService) Recommend(ctx context.Context, req RecommendRequest) (*RecommendResponse, error) {
	totalStart := time.Now()
	requestID := uuid.NewString()
	log := s.logger.With("request_id", requestID)

	// Stage 1: validate requested models before any upstream call.
	rerankModel, embeddingModel, err := s.validateModels(req)
	if err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}

	var latency LatencyBreakdown

	// Stage 2: generate synthetic candidate phrases.
	t0 := time.Now()
	phrases, err := s.generateCandidates(ctx, req.UserContext, req.LLMModel)
	if err != nil {
		return nil, &StageError{Stage: StageGenerate, Err: err}
	}
	latency.CandidateGenerationMS = millisSince(t0)
	log.Debug("generated synthetic candidates", "count", len(phrases), "model", req.LLMModel)

	// Stage 3: embed all phrases in one batched call.
	t0 = time.Now()
	emb := s.embedders.For(embeddingModel.Provider)
	if emb == nil {
		return nil, &StageError{
			Stage: StageEmbed,
			Err:   fmt.Errorf("no embedder configured for provider kind %q", embeddingModel.Provider),
		}
	}
	queryVectors, err := emb.EmbedBatch(ctx, phrases, embeddingModel.Name)
	if err != nil {
		return nil, &StageError{Stage: StageEmbed, Err: err}
	}
	latency.EmbeddingMS = millisSince(t0)

	// Stage 4: aggregated nearest-neighbor retrieval.
	t0 = time.Now()
	idx, err := s.catalog.Resolve(embeddingModel.Key)
	if err != nil {
		return nil, &StageError{Stage: StageSearch, Err: err}
	}
	hits, err := vectorindex.Aggregate(idx, queryVectors, s.cfg.KPerQuery, s.cfg.NumCandidates)
	if err != nil {
		return nil, &StageError{Stage: StageSearch, Err: err}
	}
	pool := s.catalog.Materialize(hits)
	latency.VectorSearchMS = millisSince(t0)
	log.Debug("retrieved candidate pool", "size", len(pool), "embedding_model", embeddingModel.Key)

	// Stage 5: rerank the pool against the original user context.
	t0 = time.Now()
	candidates := make([]reranker.Candidate, len(pool))
	for i, item := range pool {
		candidates[i] = reranker.Candidate{
			ItemID: item.ItemID,
			Title:  item.Title,
			Text:   item.Text,
		}
	}
	ranked, err := s.rerankers.For(rerankModel).Rerank(ctx, req.UserContext, candidates, s.cfg.NumResults)
	if err != nil {
		return nil, &StageError{Stage: StageRerank, Err: err}
	}
	if len(ranked) > s.cfg.NumResults {
		ranked = ranked[:s.cfg.NumResults]
	}
	latency.RerankingMS = millisSince(t0)

	latency.TotalMS = millisSince(totalStart)

	recommendations := make([]Recommendation, len(ranked))
	for i, r := range ranked {
		recommendations[i] = Recommendation{
			ItemID: r.ItemID,
			Title:  r.Title,
			Text:   r.Text,
			Score:  r.Score,
		}
	}

	log.Info("recommendation served",
		"results", len(recommendations),
		"pool_size", len(pool),
		"llm_model", req.LLMModel,
		"rerank_model", req.RerankModel,
		"embedding_model", req.EmbeddingModel,
		"total_ms", latency.TotalMS,
	)

	return &RecommendResponse{
		Recommendations: recommendations,
		Latency:         latency,
		Debug: DebugInfo{
			RequestID:           requestID,
			SyntheticCandidates: phrases,
			NumRetrieved:        len(pool),
			LLMModelUsed:        req.LLMModel,
			RerankModelUsed:     req.RerankModel,
			EmbeddingModelUsed:  embeddingModel.Key,
		},
	}, nil
}

// validateModels checks all three requested model ids against the configured
// allow-lists and the static registries.
func (s *RecommendService) validateModels(req RecommendRequest) (models.RerankModel, models.EmbeddingModel, error) {
	allowed := false
	for _, m := range s.cfg.LLMModels {
		if m == req.LLMModel {
			allowed = true
			break
		}
	}
	if !allowed {
		return models.RerankModel{}, models.EmbeddingModel{},
			fmt.Errorf("llm model %q: %w (available: %v)", req.LLMModel, ErrInvalidModel, s.cfg.LLMModels)
	}

	rerankModel, ok := models.RerankByKey(req.RerankModel)
	if !ok {
		return models.RerankModel{}, models.EmbeddingModel{},
			fmt.Errorf("rerank model %q: %w", req.RerankModel, ErrInvalidModel)
	}

	embeddingModel, ok := models.EmbeddingByKey(req.EmbeddingModel)
	if !ok {
		return models.RerankModel{}, models.EmbeddingModel{},
			fmt.Errorf("embedding model %q: %w", req.EmbeddingModel, ErrInvalidModel)
	}

	return rerankModel, embeddingModel, nil
}

// generateCandidates asks the LLM for short synthetic item phrases standing
// in for plausible user intents. Fewer than the requested count is accepted
// as-is; zero is not.
func (s *RecommendService) generateCandidates(ctx context.Context, userContext, model string) ([]string, error) {
	prompt := fmt.Sprintf(`%s

Generate %d %s recommendations for the following user context.
Return ONLY a JSON array of strings, each being a short %s title/name.

User Context:
%s

Response format: ["candidate1", "candidate2", ...]`,
		s.cfg.SystemPrompt, s.cfg.NumSynthetic, s.cfg.ItemType, s.cfg.ItemType, userContext)

	response, err := s.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		Model:       model,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("generating candidates: %w", err)
	}

	phrases, err := parse.StringArray(response)
	if err != nil {
		return nil, err
	}
	if len(phrases) > s.cfg.NumSynthetic {
		phrases = phrases[:s.cfg.NumSynthetic]
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("llm returned no candidates")
	}
	return phrases, nil
}

// ListModels returns every model the service accepts, for frontend dropdowns.
func (s *RecommendService) ListModels() ModelsResponse {
	loaded := make(map[string]bool)
	for _, key := range s.catalog.LoadedModels() {
		loaded[key] = true
	}

	embeddingInfos := make([]EmbeddingModelInfo, 0)
	for _, m := range models.EmbeddingModels() {
		embeddingInfos = append(embeddingInfos, EmbeddingModelInfo{
			Key:         m.Key,
			DisplayName: m.DisplayName,
			Dimension:   m.Dimension,
			Loaded:      loaded[m.Key],
		})
	}

	rerankKeys := make([]string, 0)
	for _, m := range models.RerankModels() {
		rerankKeys = append(rerankKeys, m.Key)
	}

	return ModelsResponse{
		LLMModels:       s.cfg.LLMModels,
		RerankModels:    rerankKeys,
		EmbeddingModels: embeddingInfos,
	}
}

// Health reports whether the catalog is loaded and ready to serve.
func (s *RecommendService) Health() HealthResponse {
	return HealthResponse{
		Status:      "healthy",
		IndexLoaded: s.catalog.Loaded(),
	}
}

func millisSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
