// Package pipeline orchestrates sentiment aggregation, model training and
// risk prediction over the store.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentiment-sales-risk/internal/interfaces"
	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/model"
	"sentiment-sales-risk/internal/sentiment"
	"sentiment-sales-risk/internal/types"
)

// Pipeline is safe for concurrent use. Every call trains its own model
// snapshot; the registry only records the latest one per product and brand.
type Pipeline struct {
	store      interfaces.Store
	aggregator *sentiment.Aggregator
	registry   *model.Registry
	now        func() time.Time
}

var _ interfaces.Pipeline = (*Pipeline)(nil)

type Option func(*Pipeline)

// WithClock overrides the clock that anchors the dashboard window.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func New(store interfaces.Store, scorer *sentiment.Scorer, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		aggregator: sentiment.NewAggregator(scorer, store),
		registry:   model.NewRegistry(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LastSnapshot returns the most recent model trained for product and brand.
func (p *Pipeline) LastSnapshot(product, brand string) (*model.Snapshot, bool) {
	return p.registry.Get(product, brand)
}

func (p *Pipeline) today() types.Date {
	return types.NewDate(p.now().UTC())
}

func (p *Pipeline) AnalyzeSentiment(ctx context.Context, req types.AnalysisRequest) (*types.SentimentAnalysis, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	_, summary, err := p.loadAndSummarize(ctx, req.PostQuery())
	if err != nil {
		return nil, err
	}
	return &types.SentimentAnalysis{
		ProductName:        req.ProductName,
		Platform:           req.Platform,
		AverageSentiment:   summary.AverageSentiment,
		NegativePercentage: summary.NegativePercentage,
		TotalPosts:         summary.TotalPosts,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
	}, nil
}

func (p *Pipeline) Comments(ctx context.Context, q types.CommentQuery) ([]types.SocialPost, error) {
	if strings.TrimSpace(q.ProductName) == "" {
		return nil, fmt.Errorf("%w: product_name is required", types.ErrInvalidRequest)
	}
	posts, err := p.store.Comments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return posts, nil
}

// loadAndSummarize fetches the window's posts and scores any that are new.
// Ingestion errors pass through unwrapped so callers can match them.
func (p *Pipeline) loadAndSummarize(ctx context.Context, q types.PostQuery) ([]types.SocialPost, types.SentimentSummary, error) {
	posts, err := p.store.GetOrCreatePosts(ctx, q)
	if err != nil {
		if types.IsIngestionError(err) {
			return nil, types.SentimentSummary{}, err
		}
		return nil, types.SentimentSummary{}, fmt.Errorf("load posts: %w", err)
	}

	op := logger.StartOperation(ctx, "sentiment.Summarize", "product", q.ProductName, "posts", len(posts))
	summary, err := p.aggregator.Summarize(op.Context(), posts)
	if err != nil {
		op.EndWithError(err)
		return nil, types.SentimentSummary{}, err
	}
	op.End("average", summary.AverageSentiment, "negative_pct", summary.NegativePercentage)
	return posts, summary, nil
}

func (p *Pipeline) train(ctx context.Context, product, brand string, revenues, sentiments []float64) (*model.Snapshot, error) {
	op := logger.StartOperation(ctx, "model.Train", "product", product, "brand", brand, "samples", len(revenues))
	snap, err := model.Train(revenues, sentiments)
	if err != nil {
		op.EndWithError(err)
		return nil, fmt.Errorf("train models: %w", err)
	}
	op.End("label_rule", string(snap.Rule), "flipped", snap.Flipped)
	p.registry.Put(product, brand, snap)
	return snap, nil
}
