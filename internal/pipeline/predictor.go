package pipeline

import (
	"context"
	"fmt"
	"math"

	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/types"
)

const (
	lowRiskCeiling    = 0.33
	mediumRiskCeiling = 0.66

	// Sales history reaches this many days before the request window.
	salesLookbackDays = 30

	// Shape of the series trained on when no sales rows exist.
	fallbackPoints        = 30
	fallbackBaseRevenue   = 10000.0
	fallbackRevenueStep   = 100.0
	fallbackCenter        = 15
	fallbackSentimentStep = 0.01

	dropEpsilon = 1e-6

	// Predictions are not calibrated; the reported confidence is fixed.
	reportedConfidence = 1.0
)

// RiskTier maps a loss probability to Low below 0.33, Medium below 0.66,
// otherwise High.
func RiskTier(p float64) types.RiskLevel {
	switch {
	case p < lowRiskCeiling:
		return types.RiskLow
	case p < mediumRiskCeiling:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}

// DropPercentage is the predicted shortfall against recent revenue, floored
// at zero. The denominator never falls below 1e-6.
func DropPercentage(recent, predicted float64) float64 {
	return math.Max(0, (recent-predicted)/math.Max(recent, dropEpsilon)*100)
}

func Explanation(avgSentiment, negativePct, dropPct float64) string {
	return fmt.Sprintf(
		"Detected average sentiment of %.2f with %.1f%% negative comments. Model predicts a potential revenue drop of %.1f%%.",
		avgSentiment, negativePct, dropPct,
	)
}

// predictionSeries builds the training vectors. Real rows pair each revenue
// with the window average; without rows a fixed synthetic ramp is used.
func predictionSeries(rows []types.SalesData, avg float64) (revenues, sentiments []float64) {
	if len(rows) == 0 {
		revenues = make([]float64, fallbackPoints)
		sentiments = make([]float64, fallbackPoints)
		for i := 0; i < fallbackPoints; i++ {
			revenues[i] = fallbackBaseRevenue + float64(i)*fallbackRevenueStep
			sentiments[i] = avg + float64(i-fallbackCenter)*fallbackSentimentStep
		}
		return revenues, sentiments
	}
	revenues = make([]float64, len(rows))
	sentiments = make([]float64, len(rows))
	for i, r := range rows {
		revenues[i] = r.Revenue
		sentiments[i] = avg
	}
	return revenues, sentiments
}

func (p *Pipeline) PredictSalesLoss(ctx context.Context, req types.AnalysisRequest) (*types.PredictionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	_, summary, err := p.loadAndSummarize(ctx, req.PostQuery())
	if err != nil {
		return nil, err
	}

	rows, err := p.store.SalesRange(ctx, req.ProductName, req.BrandName, req.StartDate.AddDays(-salesLookbackDays), req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	if len(rows) == 0 {
		logger.Debug(ctx, "No sales rows, training on synthetic series",
			"product", req.ProductName,
			"brand", req.BrandName,
		)
	}
	revenues, sentiments := predictionSeries(rows, summary.AverageSentiment)

	snap, err := p.train(ctx, req.ProductName, req.BrandName, revenues, sentiments)
	if err != nil {
		return nil, err
	}

	lossProb := snap.LossProbability(summary.AverageSentiment)
	predicted := snap.PredictRevenue(summary.AverageSentiment)
	drop := DropPercentage(revenues[len(revenues)-1], predicted)
	tier := RiskTier(lossProb)
	explanation := Explanation(summary.AverageSentiment, summary.NegativePercentage, drop)

	err = p.store.UpsertPrediction(ctx, types.Prediction{
		ProductName:      req.ProductName,
		BrandName:        req.BrandName,
		Date:             req.EndDate,
		LossProbability:  lossProb,
		PredictedDropPct: drop,
		RiskLevel:        tier,
		Explanation:      explanation,
	})
	if err != nil {
		return nil, fmt.Errorf("save prediction: %w", err)
	}

	logger.Prediction(ctx, req.ProductName, req.BrandName, string(tier), lossProb, drop,
		"samples", len(revenues),
		"predicted_revenue", predicted,
	)

	return &types.PredictionResult{
		ProductName:      req.ProductName,
		BrandName:        req.BrandName,
		PredictedDropPct: drop,
		LossProbability:  lossProb,
		Confidence:       reportedConfidence,
		RiskLevel:        tier,
		Explanation:      explanation,
	}, nil
}
