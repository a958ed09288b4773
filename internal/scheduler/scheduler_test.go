package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sentiment-sales-risk/internal/store"
	"sentiment-sales-risk/internal/types"
)

type fakePredictor struct {
	mu   sync.Mutex
	reqs []types.AnalysisRequest
	fail map[string]bool
}

func (f *fakePredictor) PredictSalesLoss(_ context.Context, req types.AnalysisRequest) (*types.PredictionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.fail[req.ProductName] {
		return nil, errors.New("upstream down")
	}
	return &types.PredictionResult{ProductName: req.ProductName, RiskLevel: types.RiskMedium}, nil
}

func fixed(s string) Option {
	ts, _ := time.Parse(time.RFC3339, s)
	return WithClock(func() time.Time { return ts })
}

func TestNewRejectsBadExpression(t *testing.T) {
	if _, err := New("every day", 30, nil, &fakePredictor{}); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := New("0 6 * * * *", 30, nil, &fakePredictor{}); err == nil {
		t.Fatal("seconds field must be rejected")
	}
}

func TestNextFollowsCron(t *testing.T) {
	s, err := New("0 6 * * *", 30, nil, &fakePredictor{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	from := time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)
	want := time.Date(2024, 3, 11, 6, 0, 0, 0, time.UTC)
	if got := s.Next(from); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRunOnceRefreshesWatchlist(t *testing.T) {
	p := &fakePredictor{fail: map[string]bool{"Tablet": true}}
	watch := []store.WatchItem{
		{Product: "Phone", Brand: "Acme", Platform: "youtube"},
		{Product: "Tablet", Brand: "Acme", Platform: "youtube"},
		{Product: "Watch", Brand: "Acme"},
	}
	s, err := New("*/5 * * * *", 7, watch, p, fixed("2024-03-10T12:00:00Z"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := s.RunOnce(context.Background())
	if res.Refreshed != 2 || len(res.Errors) != 1 || res.ByTier[types.RiskMedium] != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(res.String(), "1 failed") {
		t.Errorf("summary missing failure count: %s", res)
	}
	if len(p.reqs) != 3 {
		t.Fatalf("expected every item to be attempted, got %d", len(p.reqs))
	}
	if got := p.reqs[0]; got.StartDate.String() != "2024-03-03" || got.EndDate.String() != "2024-03-10" {
		t.Errorf("unexpected window %s..%s", got.StartDate, got.EndDate)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := New("0 0 1 1 *", 30, nil, &fakePredictor{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
