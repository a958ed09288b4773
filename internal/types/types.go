package types

import (
	"fmt"
	"strings"
	"time"
)

// Label is the three-way sentiment class of one post.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// ParseLabel accepts the lower/upper-case label names. Empty input is not a label.
func ParseLabel(s string) (Label, error) {
	switch l := Label(strings.ToLower(strings.TrimSpace(s))); l {
	case LabelPositive, LabelNeutral, LabelNegative:
		return l, nil
	}
	return "", fmt.Errorf("%w: unknown sentiment label %q", ErrInvalidRequest, s)
}

// RiskLevel is the discrete sales-loss tier.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

type SocialPost struct {
	ID          string          `json:"id"`
	Content     string          `json:"content"`
	Platform    string          `json:"platform"`
	ProductName string          `json:"product_name"`
	BrandName   string          `json:"brand_name"`
	PostedOn    Date            `json:"posted_at"`
	Sentiment   *SentimentScore `json:"sentiment,omitempty"`
}

type SentimentScore struct {
	PostID string  `json:"post_id"`
	Label  Label   `json:"sentiment_label"`
	Score  float64 `json:"sentiment_score"`
}

type SalesData struct {
	ProductName string  `json:"product_name"`
	BrandName   string  `json:"brand_name"`
	Date        Date    `json:"date"`
	Revenue     float64 `json:"revenue"`
	UnitsSold   int     `json:"units_sold"`
}

type Prediction struct {
	ProductName      string    `json:"product_name"`
	BrandName        string    `json:"brand_name"`
	Date             Date      `json:"date"`
	LossProbability  float64   `json:"loss_probability"`
	PredictedDropPct float64   `json:"predicted_drop_percentage"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Explanation      string    `json:"explanation"`
}

// Comment is one raw text unit returned by an ingestion source.
type Comment struct {
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
}

// SentimentSummary is the batch-level aggregate of a set of posts.
type SentimentSummary struct {
	AverageSentiment   float64 `json:"average_sentiment"`
	NegativePercentage float64 `json:"negative_percentage"`
	TotalPosts         int     `json:"total_posts"`
}

type DailySentimentPoint struct {
	Date             Date    `json:"date"`
	AverageSentiment float64 `json:"average_sentiment"`
	TotalPosts       int     `json:"total_posts"`
}

type SalesPoint struct {
	Date             Date    `json:"date"`
	ActualRevenue    float64 `json:"actual_revenue"`
	PredictedRevenue float64 `json:"predicted_revenue"`
}

// SentimentDistribution counts posts per persisted label.
type SentimentDistribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (d *SentimentDistribution) Add(l Label) {
	switch l {
	case LabelPositive:
		d.Positive++
	case LabelNeutral:
		d.Neutral++
	case LabelNegative:
		d.Negative++
	}
}

type KPISection struct {
	AverageSentiment   float64   `json:"average_sentiment"`
	NegativePercentage float64   `json:"negative_percentage"`
	PredictedSalesDrop float64   `json:"predicted_sales_drop"`
	RiskLevel          RiskLevel `json:"risk_level"`
}

type Dashboard struct {
	ProductName           string                `json:"product_name"`
	BrandName             string                `json:"brand_name"`
	Platform              string                `json:"platform"`
	KPIs                  KPISection            `json:"kpis"`
	SentimentTrend        []DailySentimentPoint `json:"sentiment_trend"`
	SentimentDistribution SentimentDistribution `json:"sentiment_distribution"`
	CommentVolume         []DailySentimentPoint `json:"comment_volume"`
	SalesSeries           []SalesPoint          `json:"sales_series"`
	AIInsights            []string              `json:"ai_insights"`
	Alerts                []string              `json:"alerts"`
}

type SentimentAnalysis struct {
	ProductName        string  `json:"product_name"`
	Platform           string  `json:"platform"`
	AverageSentiment   float64 `json:"average_sentiment"`
	NegativePercentage float64 `json:"negative_percentage"`
	TotalPosts         int     `json:"total_posts"`
	StartDate          Date    `json:"start_date"`
	EndDate            Date    `json:"end_date"`
}

type PredictionResult struct {
	ProductName      string    `json:"product_name"`
	BrandName        string    `json:"brand_name"`
	PredictedDropPct float64   `json:"predicted_drop_percentage"`
	LossProbability  float64   `json:"loss_probability"`
	Confidence       float64   `json:"confidence"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Explanation      string    `json:"explanation"`
}
