package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"sentiment-sales-risk/internal/api"
	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/store"
	"sentiment-sales-risk/internal/types"
)

// Scraper collects comments from review pages described by CSS selectors.
type Scraper struct {
	sources     []store.WebSource
	timeout     time.Duration
	maxComments int
}

func NewScraper(sources []store.WebSource, timeout time.Duration, maxComments int) *Scraper {
	return &Scraper{
		sources:     sources,
		timeout:     timeout,
		maxComments: maxComments,
	}
}

// Platforms lists the platform names served by the configured sources.
func (s *Scraper) Platforms() []string {
	seen := make(map[string]bool)
	var out []string
	for _, src := range s.sources {
		if !seen[src.Platform] {
			seen[src.Platform] = true
			out = append(out, src.Platform)
		}
	}
	return out
}

// FetchComments scrapes every source registered for platform. The first
// failing source aborts the fetch.
func (s *Scraper) FetchComments(ctx context.Context, platform, query string) ([]types.Comment, error) {
	var all []types.Comment
	for _, src := range s.sources {
		if src.Platform != platform {
			continue
		}
		comments, err := s.scrapeSource(ctx, src, query)
		if err != nil {
			return nil, err
		}
		all = append(all, comments...)
	}
	logger.Info(ctx, "Web comments scraped", "platform", platform, "query", query, "comments", len(all))
	return all, nil
}

func (s *Scraper) scrapeSource(ctx context.Context, src store.WebSource, query string) ([]types.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.fail(src, 0, err)
	}

	target := strings.ReplaceAll(src.URLTemplate, "{query}", url.QueryEscape(query))
	u, err := url.Parse(target)
	if err != nil {
		return nil, s.fail(src, 0, fmt.Errorf("bad url template: %w", err))
	}

	c := colly.NewCollector(
		colly.AllowedDomains(u.Hostname()),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range api.BrowserHeaders() {
			r.Headers.Set(k, v)
		}
	})

	var comments []types.Comment
	skipped := 0
	c.OnHTML(src.Container, func(e *colly.HTMLElement) {
		if s.maxComments > 0 && len(comments) >= s.maxComments {
			return
		}
		textSel := e.DOM
		if src.Text != "" {
			textSel = e.DOM.Find(src.Text)
		}
		text := cleanText(textSel)
		if text == "" {
			return
		}
		published, ok := publishedAt(e.DOM, src)
		if !ok {
			skipped++
			return
		}
		comments = append(comments, types.Comment{
			Text:        text,
			PublishedAt: published,
		})
	})

	status := 0
	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		status = r.StatusCode
		scrapeErr = err
	})

	if err := c.Visit(target); err != nil && scrapeErr == nil {
		scrapeErr = err
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, s.fail(src, status, scrapeErr)
	}
	if skipped > 0 {
		logger.Warn(ctx, "Skipped comments with unparseable timestamps", "source", src.Name, "skipped", skipped)
	}
	return comments, nil
}

func (s *Scraper) fail(src store.WebSource, status int, err error) error {
	return &types.IngestionError{
		Source:     "web:" + src.Name,
		Op:         "scrape",
		StatusCode: status,
		Err:        err,
	}
}

// cleanText joins the selection's text with single spaces.
func cleanText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// publishedAt reads the source's timestamp selector, preferring a datetime
// attribute. Sources without a date selector date their comments now; a
// configured selector that yields no parseable date reports false.
func publishedAt(dom *goquery.Selection, src store.WebSource) (time.Time, bool) {
	if src.PublishedAt == "" {
		return time.Now().UTC(), true
	}
	node := dom.Find(src.PublishedAt).First()
	raw, ok := node.Attr("datetime")
	if !ok {
		raw = cleanText(node)
	}
	layout := src.DateLayout
	if layout == "" {
		layout = time.RFC3339
	}
	t, err := time.Parse(layout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
