package interfaces

import (
	"context"

	"sentiment-sales-risk/internal/types"
)

type Pipeline interface {
	AnalyzeSentiment(ctx context.Context, req types.AnalysisRequest) (*types.SentimentAnalysis, error)
	PredictSalesLoss(ctx context.Context, req types.AnalysisRequest) (*types.PredictionResult, error)
	BuildDashboard(ctx context.Context, req types.DashboardRequest) (*types.Dashboard, error)
	Comments(ctx context.Context, q types.CommentQuery) ([]types.SocialPost, error)
}
