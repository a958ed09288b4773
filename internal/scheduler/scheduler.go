// Package scheduler refreshes sales-loss predictions for a watchlist on a
// cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/store"
	"sentiment-sales-risk/internal/types"
)

// Predictor is the slice of the pipeline the scheduler drives.
type Predictor interface {
	PredictSalesLoss(ctx context.Context, req types.AnalysisRequest) (*types.PredictionResult, error)
}

// maxConcurrentRefreshes bounds in-flight predictions during one pass.
const maxConcurrentRefreshes = 4

type Scheduler struct {
	expr       string
	schedule   cron.Schedule
	predictor  Predictor
	watchlist  []store.WatchItem
	windowDays int
	now        func() time.Time
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New parses a standard 5-field cron expression (minute hour dom month dow).
func New(expr string, windowDays int, watchlist []store.WatchItem, p Predictor, opts ...Option) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	s := &Scheduler{
		expr:       expr,
		schedule:   sched,
		predictor:  p,
		watchlist:  watchlist,
		windowDays: windowDays,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Result tracks one refresh pass over the watchlist.
type Result struct {
	Refreshed int
	ByTier    map[types.RiskLevel]int
	Errors    []string
}

func (r Result) String() string {
	if r.Refreshed == 0 && len(r.Errors) == 0 {
		return "watchlist empty, nothing refreshed"
	}
	msg := fmt.Sprintf("refreshed %d (high=%d medium=%d low=%d)",
		r.Refreshed, r.ByTier[types.RiskHigh], r.ByTier[types.RiskMedium], r.ByTier[types.RiskLow])
	if len(r.Errors) > 0 {
		msg += fmt.Sprintf(", %d failed: %s", len(r.Errors), strings.Join(r.Errors, "; "))
	}
	return msg
}

// RunOnce predicts every watchlist item over the trailing window ending
// today. One item failing does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) Result {
	end := types.NewDate(s.now())
	start := end.AddDays(-s.windowDays)
	res := Result{ByTier: make(map[types.RiskLevel]int)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRefreshes)
	for _, item := range s.watchlist {
		item := item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				mu.Lock()
				res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: %v", item.Brand, item.Product, err))
				mu.Unlock()
				return nil
			}
			pred, err := s.predictor.PredictSalesLoss(gctx, types.AnalysisRequest{
				ProductName: item.Product,
				BrandName:   item.Brand,
				Platform:    item.Platform,
				StartDate:   start,
				EndDate:     end,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.ErrorWithErr(gctx, "Scheduled prediction failed", err, "product", item.Product, "brand", item.Brand)
				res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: %v", item.Brand, item.Product, err))
				return nil
			}
			res.Refreshed++
			res.ByTier[pred.RiskLevel]++
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(res.Errors)
	return res
}

// Run blocks, refreshing the watchlist at each scheduled time until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Info(ctx, "Watchlist refresh scheduled", "cron", s.expr, "items", len(s.watchlist), "window_days", s.windowDays)
	for {
		now := s.now()
		next := s.schedule.Next(now)
		wait := next.Sub(now)
		logger.Info(ctx, "Next watchlist refresh", "at", next.Format(time.RFC3339), "in", wait.Round(time.Second).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info(ctx, "Watchlist scheduler stopped")
			return
		case <-timer.C:
		}

		op := logger.StartOperation(ctx, "scheduler.Refresh")
		res := s.RunOnce(op.Context())
		op.End("refreshed", res.Refreshed, "failed", len(res.Errors))
		logger.Info(ctx, "Watchlist refresh complete", "summary", res.String())
	}
}
