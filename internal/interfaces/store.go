package interfaces

import (
	"context"

	"sentiment-sales-risk/internal/types"
)

// Store is the persistence collaborator of the pipeline.
type Store interface {
	// GetOrCreatePosts returns posts in the query window ordered by date.
	// An empty window may be filled from an ingestion source first.
	GetOrCreatePosts(ctx context.Context, q types.PostQuery) ([]types.SocialPost, error)
	// SalesRange returns sales rows with from <= date <= to, ascending.
	SalesRange(ctx context.Context, product, brand string, from, to types.Date) ([]types.SalesData, error)
	// UpsertPrediction replaces the prediction stored for the same product, brand and date.
	UpsertPrediction(ctx context.Context, p types.Prediction) error
	// EnsureSentiment stores score unless one already exists for the post
	// and returns whichever is persisted.
	EnsureSentiment(ctx context.Context, score types.SentimentScore) (types.SentimentScore, error)
	Comments(ctx context.Context, q types.CommentQuery) ([]types.SocialPost, error)
}
