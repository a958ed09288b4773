package pipeline

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"sentiment-sales-risk/internal/sentiment"
	"sentiment-sales-risk/internal/types"
)

type memStore struct {
	mu          sync.Mutex
	posts       []types.SocialPost
	scores      map[string]types.SentimentScore
	sales       []types.SalesData
	predictions map[string]types.Prediction
	upserts     int
	salesCalls  int
	lastFrom    types.Date
	postsErr    error
}

func newMemStore() *memStore {
	return &memStore{
		scores:      make(map[string]types.SentimentScore),
		predictions: make(map[string]types.Prediction),
	}
}

func (m *memStore) GetOrCreatePosts(_ context.Context, q types.PostQuery) ([]types.SocialPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postsErr != nil {
		return nil, m.postsErr
	}
	var out []types.SocialPost
	for _, p := range m.posts {
		if p.ProductName != q.ProductName || p.BrandName != q.BrandName {
			continue
		}
		if p.PostedOn.Before(q.From.Time) || p.PostedOn.After(q.To.Time) {
			continue
		}
		if s, ok := m.scores[p.ID]; ok {
			s := s
			p.Sentiment = &s
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) SalesRange(_ context.Context, product, brand string, from, to types.Date) ([]types.SalesData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.salesCalls++
	m.lastFrom = from
	var out []types.SalesData
	for _, s := range m.sales {
		if s.ProductName == product && s.BrandName == brand && !s.Date.Before(from.Time) && !s.Date.After(to.Time) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) UpsertPrediction(_ context.Context, p types.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.predictions[p.ProductName+"|"+p.BrandName+"|"+p.Date.String()] = p
	return nil
}

func (m *memStore) EnsureSentiment(_ context.Context, s types.SentimentScore) (types.SentimentScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.scores[s.PostID]; ok {
		return existing, nil
	}
	m.scores[s.PostID] = s
	return s, nil
}

func (m *memStore) Comments(_ context.Context, q types.CommentQuery) ([]types.SocialPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.SocialPost
	for _, p := range m.posts {
		if p.ProductName == q.ProductName {
			out = append(out, p)
		}
	}
	return out, nil
}

func mustDate(t *testing.T, s string) types.Date {
	t.Helper()
	d, err := types.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func fixedClock(t *testing.T, s string) Option {
	d := mustDate(t, s)
	return WithClock(func() time.Time { return d.Add(13 * time.Hour) })
}

func TestRiskTierBoundaries(t *testing.T) {
	cases := []struct {
		p    float64
		want types.RiskLevel
	}{
		{0, types.RiskLow},
		{0.32, types.RiskLow},
		{0.33, types.RiskMedium},
		{0.65, types.RiskMedium},
		{0.66, types.RiskHigh},
		{1, types.RiskHigh},
	}
	for _, c := range cases {
		if got := RiskTier(c.p); got != c.want {
			t.Errorf("RiskTier(%v) = %s, want %s", c.p, got, c.want)
		}
	}
}

func TestDropPercentage(t *testing.T) {
	if got := DropPercentage(100, 80); math.Abs(got-20) > 1e-9 {
		t.Errorf("expected 20%%, got %v", got)
	}
	if got := DropPercentage(100, 150); got != 0 {
		t.Errorf("growth must floor at 0, got %v", got)
	}
	got := DropPercentage(0, -1)
	if math.IsInf(got, 0) || math.IsNaN(got) || got < 0 {
		t.Errorf("zero revenue must not divide by zero, got %v", got)
	}
}

func TestExplanationFormat(t *testing.T) {
	got := Explanation(-0.05, 50, 12.34)
	want := "Detected average sentiment of -0.05 with 50.0% negative comments. Model predicts a potential revenue drop of 12.3%."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestPredictSalesLossWithoutSalesOrPosts(t *testing.T) {
	st := newMemStore()
	p := New(st, sentiment.DefaultScorer())
	req := types.AnalysisRequest{
		ProductName: "Phone", BrandName: "Acme", Platform: "youtube",
		StartDate: mustDate(t, "2024-03-01"), EndDate: mustDate(t, "2024-03-31"),
	}

	res, err := p.PredictSalesLoss(context.Background(), req)
	if err != nil {
		t.Fatalf("PredictSalesLoss: %v", err)
	}
	if res.PredictedDropPct < 0 || res.LossProbability < 0 || res.LossProbability > 1 {
		t.Errorf("result out of range: %+v", res)
	}
	if res.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", res.Confidence)
	}
	if res.RiskLevel != RiskTier(res.LossProbability) {
		t.Errorf("tier %s does not match probability %v", res.RiskLevel, res.LossProbability)
	}
	if st.lastFrom != mustDate(t, "2024-01-31") {
		t.Errorf("expected sales lookback from 2024-01-31, got %s", st.lastFrom)
	}
	if st.upserts != 1 {
		t.Fatalf("expected one upsert, got %d", st.upserts)
	}
	saved, ok := st.predictions["Phone|Acme|2024-03-31"]
	if !ok {
		t.Fatal("prediction not keyed by end date")
	}
	if saved.Explanation != res.Explanation || saved.RiskLevel != res.RiskLevel {
		t.Errorf("stored prediction differs from result: %+v", saved)
	}
	if snap, ok := p.LastSnapshot("Phone", "Acme"); !ok || snap.Samples != 30 {
		t.Errorf("expected synthetic 30-point snapshot, got %+v", snap)
	}
}

func TestPredictSalesLossScoresPostsOnce(t *testing.T) {
	st := newMemStore()
	st.posts = []types.SocialPost{
		{ID: "p1", Content: "This product is great and amazing", ProductName: "Phone", BrandName: "Acme", PostedOn: mustDate(t, "2024-03-05")},
		{ID: "p2", Content: "Terrible bug, very slow", ProductName: "Phone", BrandName: "Acme", PostedOn: mustDate(t, "2024-03-06")},
	}
	p := New(st, sentiment.DefaultScorer())
	req := types.AnalysisRequest{ProductName: "Phone", BrandName: "Acme", StartDate: mustDate(t, "2024-03-01"), EndDate: mustDate(t, "2024-03-31")}

	res, err := p.PredictSalesLoss(context.Background(), req)
	if err != nil {
		t.Fatalf("PredictSalesLoss: %v", err)
	}
	if want := "Detected average sentiment of -0.05 with 50.0% negative comments."; res.Explanation[:len(want)] != want {
		t.Errorf("unexpected explanation %q", res.Explanation)
	}
	if len(st.scores) != 2 {
		t.Errorf("expected 2 persisted scores, got %d", len(st.scores))
	}

	analysis, err := p.AnalyzeSentiment(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeSentiment: %v", err)
	}
	if analysis.TotalPosts != 2 || math.Abs(analysis.AverageSentiment+0.05) > 1e-9 || analysis.NegativePercentage != 50 {
		t.Errorf("unexpected analysis %+v", analysis)
	}
	if analysis.StartDate != req.StartDate || analysis.EndDate != req.EndDate {
		t.Errorf("window not echoed: %+v", analysis)
	}
}

func TestPredictSalesLossUsesSalesRows(t *testing.T) {
	st := newMemStore()
	end := mustDate(t, "2024-03-31")
	for i := 0; i < 12; i++ {
		st.sales = append(st.sales, types.SalesData{
			ProductName: "Phone", BrandName: "Acme",
			Date:    end.AddDays(-11 + i),
			Revenue: 1000 + float64(i%3)*200,
		})
	}
	p := New(st, sentiment.DefaultScorer())
	req := types.AnalysisRequest{ProductName: "Phone", BrandName: "Acme", StartDate: mustDate(t, "2024-03-20"), EndDate: end}

	res, err := p.PredictSalesLoss(context.Background(), req)
	if err != nil {
		t.Fatalf("PredictSalesLoss: %v", err)
	}
	snap, _ := p.LastSnapshot("Phone", "Acme")
	if snap.Samples != 12 {
		t.Errorf("expected 12 training rows, got %d", snap.Samples)
	}
	// Constant feature: regressor predicts mean revenue (1200); last row is 1000+200*(11%3)=1400.
	want := (1400.0 - 1200.0) / 1400.0 * 100
	if math.Abs(res.PredictedDropPct-want) > 1e-6 {
		t.Errorf("expected drop %.4f, got %.4f", want, res.PredictedDropPct)
	}
}

func TestPredictSalesLossPropagatesIngestionError(t *testing.T) {
	st := newMemStore()
	st.postsErr = &types.IngestionError{Source: "youtube", Op: "search", StatusCode: 403, Err: errors.New("quota")}
	p := New(st, sentiment.DefaultScorer())

	_, err := p.PredictSalesLoss(context.Background(), types.AnalysisRequest{
		ProductName: "Phone", StartDate: mustDate(t, "2024-03-01"), EndDate: mustDate(t, "2024-03-02"),
	})
	var ie *types.IngestionError
	if !errors.As(err, &ie) || ie.StatusCode != 403 {
		t.Fatalf("expected ingestion error, got %v", err)
	}
	if st.upserts != 0 {
		t.Error("nothing should be saved after an ingestion failure")
	}
}

func TestInvalidRequests(t *testing.T) {
	p := New(newMemStore(), sentiment.DefaultScorer())
	ctx := context.Background()

	_, err := p.PredictSalesLoss(ctx, types.AnalysisRequest{StartDate: mustDate(t, "2024-03-01"), EndDate: mustDate(t, "2024-03-02")})
	if !errors.Is(err, types.ErrInvalidRequest) {
		t.Errorf("missing product: expected ErrInvalidRequest, got %v", err)
	}
	_, err = p.AnalyzeSentiment(ctx, types.AnalysisRequest{ProductName: "x", StartDate: mustDate(t, "2024-03-02"), EndDate: mustDate(t, "2024-03-01")})
	if !errors.Is(err, types.ErrInvalidRequest) {
		t.Errorf("reversed window: expected ErrInvalidRequest, got %v", err)
	}
	if _, err := p.BuildDashboard(ctx, types.DashboardRequest{}); !errors.Is(err, types.ErrInvalidRequest) {
		t.Errorf("dashboard: expected ErrInvalidRequest, got %v", err)
	}
	if _, err := p.Comments(ctx, types.CommentQuery{}); !errors.Is(err, types.ErrInvalidRequest) {
		t.Errorf("comments: expected ErrInvalidRequest, got %v", err)
	}
}

func TestBuildDashboardSyntheticSales(t *testing.T) {
	st := newMemStore()
	p := New(st, sentiment.DefaultScorer(), fixedClock(t, "2024-03-31"))

	d, err := p.BuildDashboard(context.Background(), types.DashboardRequest{ProductName: "Phone", BrandName: "Acme", Platform: "youtube"})
	if err != nil {
		t.Fatalf("BuildDashboard: %v", err)
	}
	if len(d.SalesSeries) != 31 {
		t.Fatalf("expected one synthetic row per day over 31 days, got %d", len(d.SalesSeries))
	}
	if d.SalesSeries[0].Date != mustDate(t, "2024-03-01") || d.SalesSeries[30].Date != mustDate(t, "2024-03-31") {
		t.Errorf("unexpected window %s..%s", d.SalesSeries[0].Date, d.SalesSeries[30].Date)
	}
	if d.SalesSeries[0].ActualRevenue != 10000 {
		t.Errorf("expected base revenue 10000, got %v", d.SalesSeries[0].ActualRevenue)
	}
	for i := 1; i < len(d.SalesSeries); i++ {
		prev, cur := d.SalesSeries[i-1], d.SalesSeries[i]
		if cur.Date != prev.Date.AddDays(1) {
			t.Fatalf("gap between %s and %s", prev.Date, cur.Date)
		}
		if math.Abs(cur.ActualRevenue/prev.ActualRevenue-1.01) > 1e-9 {
			t.Fatalf("day %d does not grow 1%%: %v -> %v", i, prev.ActualRevenue, cur.ActualRevenue)
		}
		// no posts on any day, so predicted mirrors actual
		if cur.PredictedRevenue != cur.ActualRevenue {
			t.Fatalf("day %d: expected predicted = actual", i)
		}
	}

	if len(d.SentimentTrend) != 0 || len(d.CommentVolume) != 0 {
		t.Errorf("expected empty trend without posts")
	}
	if st.upserts != 1 || st.salesCalls != 2 {
		t.Errorf("expected one upsert from the second prediction pass and two sales reads, got %d / %d", st.upserts, st.salesCalls)
	}
	if _, ok := st.predictions["Phone|Acme|2024-03-31"]; !ok {
		t.Error("expected prediction stored for today")
	}
	if len(d.AIInsights) != 3 || d.AIInsights[0] != "Average sentiment over the last 30 days is 0.00." {
		t.Errorf("unexpected insights %v", d.AIInsights)
	}
	if d.KPIs.RiskLevel == "" || d.KPIs.PredictedSalesDrop < 0 {
		t.Errorf("unexpected KPIs %+v", d.KPIs)
	}
}

func TestBuildDashboardWithPostsAndSales(t *testing.T) {
	st := newMemStore()
	today := mustDate(t, "2024-03-31")
	for k := 0; k <= 30; k++ {
		st.sales = append(st.sales, types.SalesData{
			ProductName: "Phone", BrandName: "Acme",
			Date:    today.AddDays(-30 + k),
			Revenue: 1000 + float64(k),
		})
	}
	st.posts = []types.SocialPost{
		{ID: "a", Content: "great", ProductName: "Phone", BrandName: "Acme", PostedOn: mustDate(t, "2024-03-10")},
		{ID: "b", Content: "bug", ProductName: "Phone", BrandName: "Acme", PostedOn: mustDate(t, "2024-03-10")},
		{ID: "c", Content: "bad", ProductName: "Phone", BrandName: "Acme", PostedOn: mustDate(t, "2024-03-20")},
		{ID: "old", Content: "love", ProductName: "Phone", BrandName: "Acme", PostedOn: mustDate(t, "2024-01-01")},
	}
	p := New(st, sentiment.DefaultScorer(), fixedClock(t, "2024-03-31"))

	d, err := p.BuildDashboard(context.Background(), types.DashboardRequest{ProductName: "Phone", BrandName: "Acme"})
	if err != nil {
		t.Fatalf("BuildDashboard: %v", err)
	}
	if len(d.SentimentTrend) != 2 || d.SentimentTrend[0].TotalPosts != 2 || d.SentimentTrend[1].TotalPosts != 1 {
		t.Fatalf("unexpected trend %+v", d.SentimentTrend)
	}
	if d.SentimentDistribution.Positive != 1 || d.SentimentDistribution.Negative != 2 {
		t.Errorf("unexpected distribution %+v", d.SentimentDistribution)
	}
	if _, ok := st.scores["old"]; ok {
		t.Error("post outside the window was scored")
	}

	// Single constant feature: the regressor predicts mean revenue (1015).
	for _, pt := range d.SalesSeries {
		switch pt.Date.String() {
		case "2024-03-10", "2024-03-20":
			if math.Abs(pt.PredictedRevenue-1015) > 1e-6 {
				t.Errorf("%s: expected predicted 1015, got %v", pt.Date, pt.PredictedRevenue)
			}
		default:
			if pt.PredictedRevenue != pt.ActualRevenue {
				t.Errorf("%s: expected actual revenue on a day without posts", pt.Date)
			}
		}
	}
}

func TestAlerts(t *testing.T) {
	if a := alerts(types.RiskHigh); len(a) != 1 || a[0] != alertHighRisk {
		t.Errorf("unexpected high alerts %v", a)
	}
	if a := alerts(types.RiskMedium); len(a) != 1 || a[0] != alertMediumRisk {
		t.Errorf("unexpected medium alerts %v", a)
	}
	if a := alerts(types.RiskLow); a == nil || len(a) != 0 {
		t.Errorf("expected empty non-nil alerts for Low, got %#v", a)
	}
}

func TestConcurrentPredictionsAreIsolated(t *testing.T) {
	st := newMemStore()
	end := mustDate(t, "2024-03-31")
	for i := 0; i < 15; i++ {
		st.sales = append(st.sales,
			types.SalesData{ProductName: "A", Date: end.AddDays(-i), Revenue: 500 + float64(i*37%11)*40},
			types.SalesData{ProductName: "B", Date: end.AddDays(-i), Revenue: 9000 - float64(i)*100},
		)
	}
	p := New(st, sentiment.DefaultScorer())
	reqFor := func(product string) types.AnalysisRequest {
		return types.AnalysisRequest{ProductName: product, StartDate: mustDate(t, "2024-03-20"), EndDate: end}
	}

	want := make(map[string]*types.PredictionResult)
	for _, prod := range []string{"A", "B"} {
		res, err := p.PredictSalesLoss(context.Background(), reqFor(prod))
		if err != nil {
			t.Fatal(err)
		}
		want[prod] = res
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for _, prod := range []string{"A", "B"} {
			wg.Add(1)
			go func(prod string) {
				defer wg.Done()
				res, err := p.PredictSalesLoss(context.Background(), reqFor(prod))
				if err != nil {
					errs <- err
					return
				}
				if math.Abs(res.LossProbability-want[prod].LossProbability) > 1e-9 || res.PredictedDropPct != want[prod].PredictedDropPct {
					errs <- errors.New("prediction for " + prod + " changed under concurrency")
				}
			}(prod)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
