package pipelineobs

import (
	"context"
	"errors"
	"time"

	"sentiment-sales-risk/internal/interfaces"
	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/trace"
	"sentiment-sales-risk/internal/types"
)

// Recorder receives per-call measurements; monitoring.MetricsCollector
// satisfies it.
type Recorder interface {
	ObserveOperation(operation string, d time.Duration, err error)
	ObservePrediction(riskLevel string, lossProbability float64)
	ObserveIngestionFailure(source string)
}

type observablePipeline struct {
	pipeline interfaces.Pipeline
	metrics  Recorder
}

var _ interfaces.Pipeline = (*observablePipeline)(nil)

// Wrap adds spans, logs and, when metrics is non-nil, Prometheus
// measurements around every pipeline operation.
func Wrap(p interfaces.Pipeline, metrics Recorder) interfaces.Pipeline {
	return &observablePipeline{
		pipeline: p,
		metrics:  metrics,
	}
}

func (op *observablePipeline) finish(name string, start time.Time, err error) {
	if op.metrics == nil {
		return
	}
	op.metrics.ObserveOperation(name, time.Since(start), err)
	var ie *types.IngestionError
	if errors.As(err, &ie) {
		op.metrics.ObserveIngestionFailure(ie.Source)
	}
}

func (op *observablePipeline) AnalyzeSentiment(ctx context.Context, req types.AnalysisRequest) (*types.SentimentAnalysis, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.AnalyzeSentiment")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "Analyzing sentiment",
		"product", req.ProductName,
		"platform", req.Platform,
		"start_date", req.StartDate.String(),
		"end_date", req.EndDate.String(),
	)

	result, err := op.pipeline.AnalyzeSentiment(ctx, req)
	op.finish("analyze_sentiment", start, err)
	if err != nil {
		trace.RecordError(ctx, err)
		logger.ErrorWithErrSkip(ctx, 1, "Sentiment analysis failed", err,
			"product", req.ProductName,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Sentiment analysis completed",
		"product", req.ProductName,
		"total_posts", result.TotalPosts,
		"average_sentiment", result.AverageSentiment,
		"negative_pct", result.NegativePercentage,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (op *observablePipeline) PredictSalesLoss(ctx context.Context, req types.AnalysisRequest) (*types.PredictionResult, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.PredictSalesLoss")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "Predicting sales loss",
		"product", req.ProductName,
		"brand", req.BrandName,
		"platform", req.Platform,
	)

	result, err := op.pipeline.PredictSalesLoss(ctx, req)
	op.finish("predict_sales_loss", start, err)
	if err != nil {
		trace.RecordError(ctx, err)
		logger.ErrorWithErrSkip(ctx, 1, "Sales loss prediction failed", err,
			"product", req.ProductName,
			"brand", req.BrandName,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	if op.metrics != nil {
		op.metrics.ObservePrediction(string(result.RiskLevel), result.LossProbability)
	}

	logger.InfoSkip(ctx, 1, "Sales loss prediction completed",
		"product", req.ProductName,
		"brand", req.BrandName,
		"risk_level", string(result.RiskLevel),
		"loss_probability", result.LossProbability,
		"drop_pct", result.PredictedDropPct,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (op *observablePipeline) BuildDashboard(ctx context.Context, req types.DashboardRequest) (*types.Dashboard, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.BuildDashboard")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "Building dashboard",
		"product", req.ProductName,
		"brand", req.BrandName,
		"platform", req.Platform,
	)

	result, err := op.pipeline.BuildDashboard(ctx, req)
	op.finish("build_dashboard", start, err)
	if err != nil {
		trace.RecordError(ctx, err)
		logger.ErrorWithErrSkip(ctx, 1, "Dashboard build failed", err,
			"product", req.ProductName,
			"brand", req.BrandName,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Dashboard built",
		"product", req.ProductName,
		"brand", req.BrandName,
		"risk_level", string(result.KPIs.RiskLevel),
		"trend_days", len(result.SentimentTrend),
		"sales_days", len(result.SalesSeries),
		"alerts", len(result.Alerts),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (op *observablePipeline) Comments(ctx context.Context, q types.CommentQuery) ([]types.SocialPost, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.Comments")
	defer span.End()

	start := time.Now()
	posts, err := op.pipeline.Comments(ctx, q)
	op.finish("comments", start, err)
	if err != nil {
		trace.RecordError(ctx, err)
		logger.ErrorWithErrSkip(ctx, 1, "Comment listing failed", err, "product", q.ProductName)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Comments listed",
		"product", q.ProductName,
		"label", string(q.Label),
		"count", len(posts),
	)
	return posts, nil
}
