package pipeline

import (
	"context"
	"fmt"

	"sentiment-sales-risk/internal/model"
	"sentiment-sales-risk/internal/sentiment"
	"sentiment-sales-risk/internal/types"
)

const (
	dashboardWindowDays = 30

	syntheticBaseRevenue    = 10000.0
	syntheticDailyGrowth    = 1.01
	syntheticRevenuePerUnit = 50.0
)

const (
	alertHighRisk   = "High risk of upcoming sales loss. Consider launching a mitigation campaign immediately."
	alertMediumRisk = "Medium risk detected. Monitor sentiment closely and address key complaints."
)

// syntheticSales returns one row per calendar day from start to end
// inclusive, growing 1% a day from 10000. These rows are never persisted.
func syntheticSales(product, brand string, start, end types.Date) []types.SalesData {
	var rows []types.SalesData
	revenue := syntheticBaseRevenue
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		rows = append(rows, types.SalesData{
			ProductName: product,
			BrandName:   brand,
			Date:        d,
			Revenue:     revenue,
			UnitsSold:   int(revenue / syntheticRevenuePerUnit),
		})
		revenue *= syntheticDailyGrowth
	}
	return rows
}

// salesSeries pairs each sales day with the regressor's revenue at that
// day's average sentiment. Days without posts repeat the actual revenue.
func salesSeries(rows []types.SalesData, trend []types.DailySentimentPoint, snap *model.Snapshot) []types.SalesPoint {
	byDay := make(map[types.Date]float64, len(trend))
	for _, pt := range trend {
		byDay[pt.Date] = pt.AverageSentiment
	}
	series := make([]types.SalesPoint, len(rows))
	for i, r := range rows {
		predicted := r.Revenue
		if s, ok := byDay[r.Date]; ok {
			predicted = snap.PredictRevenue(s)
		}
		series[i] = types.SalesPoint{Date: r.Date, ActualRevenue: r.Revenue, PredictedRevenue: predicted}
	}
	return series
}

func insights(summary types.SentimentSummary, pred *types.PredictionResult) []string {
	return []string{
		fmt.Sprintf("Average sentiment over the last 30 days is %.2f.", summary.AverageSentiment),
		fmt.Sprintf("Negative comment share is %.1f%%.", summary.NegativePercentage),
		fmt.Sprintf("Predicted revenue drop is %.1f%% with risk level %s.", pred.PredictedDropPct, pred.RiskLevel),
	}
}

func alerts(level types.RiskLevel) []string {
	switch level {
	case types.RiskHigh:
		return []string{alertHighRisk}
	case types.RiskMedium:
		return []string{alertMediumRisk}
	default:
		return []string{}
	}
}

// BuildDashboard assembles the trailing 30-day view ending today.
func (p *Pipeline) BuildDashboard(ctx context.Context, req types.DashboardRequest) (*types.Dashboard, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	end := p.today()
	start := end.AddDays(-dashboardWindowDays)
	window := types.AnalysisRequest{
		ProductName: req.ProductName,
		BrandName:   req.BrandName,
		Platform:    req.Platform,
		StartDate:   start,
		EndDate:     end,
	}

	posts, summary, err := p.loadAndSummarize(ctx, window.PostQuery())
	if err != nil {
		return nil, err
	}

	rows, err := p.store.SalesRange(ctx, req.ProductName, req.BrandName, start, end)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	if len(rows) == 0 {
		rows = syntheticSales(req.ProductName, req.BrandName, start, end)
	}
	revenues := make([]float64, len(rows))
	sentiments := make([]float64, len(rows))
	for i, r := range rows {
		revenues[i] = r.Revenue
		sentiments[i] = summary.AverageSentiment
	}
	snap, err := p.train(ctx, req.ProductName, req.BrandName, revenues, sentiments)
	if err != nil {
		return nil, err
	}

	trend := sentiment.DailyTrend(posts)
	volume := make([]types.DailySentimentPoint, len(trend))
	copy(volume, trend)

	// The KPIs come from a full second prediction over the same window. It
	// retrains on its own series and upserts the prediction for today, so
	// its tier can differ from what the sales series above implies.
	pred, err := p.PredictSalesLoss(ctx, window)
	if err != nil {
		return nil, err
	}

	return &types.Dashboard{
		ProductName: req.ProductName,
		BrandName:   req.BrandName,
		Platform:    req.Platform,
		KPIs: types.KPISection{
			AverageSentiment:   summary.AverageSentiment,
			NegativePercentage: summary.NegativePercentage,
			PredictedSalesDrop: pred.PredictedDropPct,
			RiskLevel:          pred.RiskLevel,
		},
		SentimentTrend:        trend,
		SentimentDistribution: sentiment.Distribution(posts),
		CommentVolume:         volume,
		SalesSeries:           salesSeries(rows, trend, snap),
		AIInsights:            insights(summary, pred),
		Alerts:                alerts(pred.RiskLevel),
	}, nil
}
