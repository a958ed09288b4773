package ingest

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sentiment-sales-risk/internal/api"
	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/types"
)

const PlatformYouTube = "youtube"

var errMissingAPIKey = errors.New("YouTube API key is not configured")

// YouTube pulls top-level comment threads from the most viewed videos
// matching a query through the Data API v3.
type YouTube struct {
	client      *api.Client
	apiKey      string
	maxVideos   int
	maxComments int
	retry       *api.RetryConfig
}

type YouTubeOption func(*YouTube)

func WithRetry(cfg *api.RetryConfig) YouTubeOption {
	return func(y *YouTube) {
		y.retry = cfg
	}
}

func WithLimits(maxVideos, maxComments int) YouTubeOption {
	return func(y *YouTube) {
		if maxVideos > 0 {
			y.maxVideos = maxVideos
		}
		if maxComments > 0 {
			y.maxComments = maxComments
		}
	}
}

func NewYouTube(client *api.Client, apiKey string, opts ...YouTubeOption) *YouTube {
	y := &YouTube{
		client:      client,
		apiKey:      apiKey,
		maxVideos:   3,
		maxComments: 20,
		retry:       api.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type commentThreadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					TextDisplay string `json:"textDisplay"`
					PublishedAt string `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

// SearchTopVideos returns ids of the most viewed videos for query.
func (y *YouTube) SearchTopVideos(ctx context.Context, query string) ([]string, error) {
	if y.apiKey == "" {
		return nil, y.fail("search", errMissingAPIKey)
	}
	params := url.Values{
		"part":       {"snippet"},
		"q":          {query},
		"type":       {"video"},
		"order":      {"viewCount"},
		"maxResults": {strconv.Itoa(y.maxVideos)},
		"key":        {y.apiKey},
	}
	resp, err := y.client.DoWithRetry(ctx, &api.Request{Method: "GET", Path: "/search", Query: params}, y.retry)
	if err != nil {
		return nil, y.fail("search", err)
	}

	var body searchResponse
	if err := resp.ParseJSON(&body); err != nil {
		return nil, y.fail("search", err)
	}
	ids := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	return ids, nil
}

// VideoComments returns the top-level comments of one video as plain text.
func (y *YouTube) VideoComments(ctx context.Context, videoID string) ([]types.Comment, error) {
	if y.apiKey == "" {
		return nil, y.fail("comment_threads", errMissingAPIKey)
	}
	params := url.Values{
		"part":       {"snippet"},
		"videoId":    {videoID},
		"maxResults": {strconv.Itoa(y.maxComments)},
		"textFormat": {"plainText"},
		"key":        {y.apiKey},
	}
	resp, err := y.client.DoWithRetry(ctx, &api.Request{Method: "GET", Path: "/commentThreads", Query: params}, y.retry)
	if err != nil {
		return nil, y.fail("comment_threads", err)
	}

	var body commentThreadsResponse
	if err := resp.ParseJSON(&body); err != nil {
		return nil, y.fail("comment_threads", err)
	}
	comments := make([]types.Comment, 0, len(body.Items))
	skipped := 0
	for _, item := range body.Items {
		s := item.Snippet.TopLevelComment.Snippet
		text := strings.TrimSpace(s.TextDisplay)
		if text == "" {
			continue
		}
		published, err := time.Parse(time.RFC3339, s.PublishedAt)
		if err != nil {
			skipped++
			continue
		}
		comments = append(comments, types.Comment{Text: text, PublishedAt: published.UTC()})
	}
	if skipped > 0 {
		logger.Warn(ctx, "Skipped comments with unparseable timestamps", "video_id", videoID, "skipped", skipped)
	}
	return comments, nil
}

// FetchComments aggregates comments across the top videos for query.
func (y *YouTube) FetchComments(ctx context.Context, query string) ([]types.Comment, error) {
	ids, err := y.SearchTopVideos(ctx, query)
	if err != nil {
		return nil, err
	}

	var all []types.Comment
	for _, id := range ids {
		comments, err := y.VideoComments(ctx, id)
		if err != nil {
			return nil, err
		}
		all = append(all, comments...)
	}

	logger.Info(ctx, "YouTube comments fetched", "query", query, "videos", len(ids), "comments", len(all))
	return all, nil
}

func (y *YouTube) fail(op string, err error) error {
	return &types.IngestionError{
		Source:     PlatformYouTube,
		Op:         op,
		StatusCode: api.StatusCode(err),
		Err:        err,
	}
}
