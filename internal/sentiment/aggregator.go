package sentiment

import (
	"context"
	"fmt"
	"sort"

	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/types"
)

// ScoreStore persists sentiment scores with create-if-absent semantics.
type ScoreStore interface {
	EnsureSentiment(ctx context.Context, score types.SentimentScore) (types.SentimentScore, error)
}

// Aggregator scores posts on demand and summarises them.
type Aggregator struct {
	scorer *Scorer
	store  ScoreStore
}

func NewAggregator(scorer *Scorer, store ScoreStore) *Aggregator {
	return &Aggregator{scorer: scorer, store: store}
}

// Summarize computes the batch summary of posts. A post without a score is
// scored and persisted exactly once; a post that already carries one is used
// as-is, even if the lexicon changed since. The persisted score is attached
// to posts[i].Sentiment in place.
func (a *Aggregator) Summarize(ctx context.Context, posts []types.SocialPost) (types.SentimentSummary, error) {
	if len(posts) == 0 {
		return types.SentimentSummary{}, nil
	}

	total := 0.0
	negative := 0
	created := 0
	for i := range posts {
		if posts[i].Sentiment == nil {
			score, label := a.scorer.Score(posts[i].Content)
			persisted, err := a.store.EnsureSentiment(ctx, types.SentimentScore{
				PostID: posts[i].ID,
				Label:  label,
				Score:  score,
			})
			if err != nil {
				return types.SentimentSummary{}, fmt.Errorf("persist sentiment for post %s: %w", posts[i].ID, err)
			}
			posts[i].Sentiment = &persisted
			created++
		}

		total += posts[i].Sentiment.Score
		if posts[i].Sentiment.Label == types.LabelNegative {
			negative++
		}
	}

	n := float64(len(posts))
	summary := types.SentimentSummary{
		AverageSentiment:   total / n,
		NegativePercentage: float64(negative) / n * 100.0,
		TotalPosts:         len(posts),
	}

	logger.Debug(ctx, "Sentiment summarized",
		"posts", len(posts),
		"newly_scored", created,
		"average", summary.AverageSentiment,
		"negative_pct", summary.NegativePercentage,
	)
	return summary, nil
}

// DailyTrend groups posts by calendar day, ascending, with no gap filling.
// The average only covers posts carrying a score; a day without any is 0.
func DailyTrend(posts []types.SocialPost) []types.DailySentimentPoint {
	type bucket struct {
		sum    float64
		scored int
		total  int
	}
	byDay := make(map[types.Date]*bucket)
	for _, p := range posts {
		b := byDay[p.PostedOn]
		if b == nil {
			b = &bucket{}
			byDay[p.PostedOn] = b
		}
		b.total++
		if p.Sentiment != nil {
			b.sum += p.Sentiment.Score
			b.scored++
		}
	}

	days := make([]types.Date, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j].Time) })

	points := make([]types.DailySentimentPoint, 0, len(days))
	for _, d := range days {
		b := byDay[d]
		avg := 0.0
		if b.scored > 0 {
			avg = b.sum / float64(b.scored)
		}
		points = append(points, types.DailySentimentPoint{Date: d, AverageSentiment: avg, TotalPosts: b.total})
	}
	return points
}

// Distribution counts persisted labels; unscored posts are ignored.
func Distribution(posts []types.SocialPost) types.SentimentDistribution {
	var d types.SentimentDistribution
	for _, p := range posts {
		if p.Sentiment != nil {
			d.Add(p.Sentiment.Label)
		}
	}
	return d
}
