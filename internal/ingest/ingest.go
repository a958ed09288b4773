// Package ingest fetches raw comments from content platforms when the
// store has nothing for a requested window.
package ingest

import (
	"context"
	"time"

	"sentiment-sales-risk/internal/api"
	"sentiment-sales-risk/internal/interfaces"
	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/store"
	"sentiment-sales-risk/internal/types"
)

// Service routes a fetch to the source that serves the platform and
// caches successful results. Failures are never cached.
type Service struct {
	youtube *YouTube
	scraper *Scraper
	cache   *commentCache
}

var _ interfaces.Ingestor = (*Service)(nil)

func NewService(youtube *YouTube, scraper *Scraper, cacheTTL time.Duration) *Service {
	sweep := cacheTTL
	if sweep <= 0 || sweep > 10*time.Minute {
		sweep = 10 * time.Minute
	}
	return &Service{
		youtube: youtube,
		scraper: scraper,
		cache:   newCommentCache(cacheTTL, sweep),
	}
}

// NewServiceFromConfig wires the YouTube client and the web scraper from cfg.
func NewServiceFromConfig(cfg *store.Config) *Service {
	yt := cfg.Ingestion.YouTube
	client := api.NewClient(
		api.WithBaseURL(yt.BaseURL),
		api.WithTimeout(time.Duration(yt.TimeoutSeconds)*time.Second),
		api.WithRateLimiter(api.PerSecond(yt.RequestsPerSec)),
		api.WithHeader("Accept", "application/json"),
		api.WithLogging(true),
	)
	web := cfg.Ingestion.Web
	return NewService(
		NewYouTube(client, cfg.YouTubeAPIKey(), WithLimits(yt.MaxVideos, yt.MaxComments)),
		NewScraper(web.Sources, time.Duration(web.TimeoutSeconds)*time.Second, web.MaxComments),
		time.Duration(cfg.Ingestion.CacheMinutes)*time.Minute,
	)
}

// FetchComments returns no comments and no error for a platform without a
// configured source.
func (s *Service) FetchComments(ctx context.Context, platform, query string) ([]types.Comment, error) {
	if cached, ok := s.cache.get(platform, query); ok {
		logger.Debug(ctx, "Using cached comments", "platform", platform, "query", query, "comments", len(cached))
		return cached, nil
	}

	var (
		comments []types.Comment
		err      error
	)
	switch {
	case platform == PlatformYouTube && s.youtube != nil:
		comments, err = s.youtube.FetchComments(ctx, query)
	case s.scraper != nil && s.servesWeb(platform):
		comments, err = s.scraper.FetchComments(ctx, platform, query)
	default:
		logger.Debug(ctx, "No ingestion source for platform", "platform", platform)
		return nil, nil
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Comment ingestion failed", err, "platform", platform, "query", query)
		return nil, err
	}

	s.cache.set(platform, query, comments)
	return comments, nil
}

func (s *Service) servesWeb(platform string) bool {
	for _, p := range s.scraper.Platforms() {
		if p == platform {
			return true
		}
	}
	return false
}

// Close stops the cache sweeper.
func (s *Service) Close() {
	s.cache.close()
}
