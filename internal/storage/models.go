package storage

import (
	"time"

	"sentiment-sales-risk/internal/types"
)

type postRow struct {
	ID          string        `gorm:"primaryKey;size:36"`
	Content     string        `gorm:"not null"`
	Platform    string        `gorm:"size:64;index:idx_posts_lookup,priority:3"`
	ProductName string        `gorm:"size:255;not null;index:idx_posts_lookup,priority:1"`
	BrandName   string        `gorm:"size:255;index:idx_posts_lookup,priority:2"`
	PostedOn    time.Time     `gorm:"not null;index:idx_posts_lookup,priority:4"`
	CreatedAt   time.Time
	Sentiment   *sentimentRow `gorm:"foreignKey:PostID;references:ID"`
}

func (postRow) TableName() string { return "social_posts" }

type sentimentRow struct {
	ID        uint    `gorm:"primaryKey"`
	PostID    string  `gorm:"size:36;not null;uniqueIndex"`
	Label     string  `gorm:"size:16;not null;index"`
	Score     float64 `gorm:"not null"`
	CreatedAt time.Time
}

func (sentimentRow) TableName() string { return "sentiment_scores" }

type salesRow struct {
	ID          uint      `gorm:"primaryKey"`
	ProductName string    `gorm:"size:255;not null;uniqueIndex:idx_sales_key,priority:1"`
	BrandName   string    `gorm:"size:255;uniqueIndex:idx_sales_key,priority:2"`
	Date        time.Time `gorm:"not null;uniqueIndex:idx_sales_key,priority:3"`
	Revenue     float64   `gorm:"not null"`
	UnitsSold   int       `gorm:"not null"`
}

func (salesRow) TableName() string { return "sales_data" }

type predictionRow struct {
	ID               uint      `gorm:"primaryKey"`
	ProductName      string    `gorm:"size:255;not null;uniqueIndex:idx_prediction_key,priority:1"`
	BrandName        string    `gorm:"size:255;uniqueIndex:idx_prediction_key,priority:2"`
	Date             time.Time `gorm:"not null;uniqueIndex:idx_prediction_key,priority:3"`
	LossProbability  float64
	PredictedDropPct float64
	RiskLevel        string `gorm:"size:16"`
	Explanation      string
	UpdatedAt        time.Time
}

func (predictionRow) TableName() string { return "predictions" }

func (r postRow) toPost() types.SocialPost {
	p := types.SocialPost{
		ID:          r.ID,
		Content:     r.Content,
		Platform:    r.Platform,
		ProductName: r.ProductName,
		BrandName:   r.BrandName,
		PostedOn:    types.NewDate(r.PostedOn.UTC()),
	}
	if r.Sentiment != nil {
		s := r.Sentiment.toScore()
		p.Sentiment = &s
	}
	return p
}

func (r sentimentRow) toScore() types.SentimentScore {
	return types.SentimentScore{PostID: r.PostID, Label: types.Label(r.Label), Score: r.Score}
}

func (r salesRow) toSales() types.SalesData {
	return types.SalesData{
		ProductName: r.ProductName,
		BrandName:   r.BrandName,
		Date:        types.NewDate(r.Date.UTC()),
		Revenue:     r.Revenue,
		UnitsSold:   r.UnitsSold,
	}
}

func (r predictionRow) toPrediction() types.Prediction {
	return types.Prediction{
		ProductName:      r.ProductName,
		BrandName:        r.BrandName,
		Date:             types.NewDate(r.Date.UTC()),
		LossProbability:  r.LossProbability,
		PredictedDropPct: r.PredictedDropPct,
		RiskLevel:        types.RiskLevel(r.RiskLevel),
		Explanation:      r.Explanation,
	}
}
