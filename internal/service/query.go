package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"policyrag/internal/domain"
	"policyrag/internal/metrics"
	"policyrag/internal/vectorstore"
)

// Answer is the synthesised response and the chunks it was grounded on.
type Answer struct {
	Text    string
	Sources []domain.SearchResult
}

// QueryService answers questions against the manager's active index.
type QueryService struct {
	manager  *Manager
	embedder domain.Embedder
	model    domain.LanguageModel
	topK     int
	logger   arbor.ILogger
	metrics  *metrics.Metrics
}

// NewQueryService returns a query service retrieving topK chunks per question.
func NewQueryService(manager *Manager, embedder domain.Embedder, model domain.LanguageModel, topK int, logger arbor.ILogger, m *metrics.Metrics) *QueryService {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	return &QueryService{manager: manager, embedder: embedder, model: model, topK: topK, logger: logger, metrics: m}
}

// Ask retrieves the most relevant chunks and asks the language model. The
// model output is returned verbatim; model failures are not retried.
func (q *QueryService) Ask(ctx context.Context, question string) (ans *Answer, err error) {
	start := time.Now()
	defer func() {
		q.metrics.ObserveAsk(outcome(err), time.Since(start))
	}()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrInvalidQuestion
	}
	if err := q.manager.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNotReady, err)
	}

	vec, err := q.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrEmbedding, err)
	}
	results, err := q.manager.Search(ctx, vec, q.topK)
	if err != nil {
		return nil, err
	}

	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Chunk.Text
	}
	text, err := q.model.Complete(ctx, question, contexts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}

	q.logger.Debug().
		Int("question_len", len(question)).
		Int("sources", len(results)).
		Str("model", q.model.Name()).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("Question answered")
	return &Answer{Text: text, Sources: results}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidQuestion):
		return "invalid"
	case errors.Is(err, domain.ErrNotReady):
		return "not_ready"
	case errors.Is(err, domain.ErrEmbedding):
		return "embedding_error"
	case errors.Is(err, domain.ErrUpstream):
		return "upstream_error"
	}
	return "error"
}
