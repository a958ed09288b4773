package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"sentiment-sales-risk/internal/monitoring"
	"sentiment-sales-risk/internal/types"
)

type fakePipeline struct {
	err         error
	lastRequest types.AnalysisRequest
	lastDash    types.DashboardRequest
	lastQuery   types.CommentQuery
}

func (f *fakePipeline) AnalyzeSentiment(_ context.Context, req types.AnalysisRequest) (*types.SentimentAnalysis, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return &types.SentimentAnalysis{ProductName: req.ProductName, TotalPosts: 2, AverageSentiment: -0.05}, nil
}

func (f *fakePipeline) PredictSalesLoss(_ context.Context, req types.AnalysisRequest) (*types.PredictionResult, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return &types.PredictionResult{ProductName: req.ProductName, RiskLevel: types.RiskHigh, Confidence: 1}, nil
}

func (f *fakePipeline) BuildDashboard(_ context.Context, req types.DashboardRequest) (*types.Dashboard, error) {
	f.lastDash = req
	if f.err != nil {
		return nil, f.err
	}
	return &types.Dashboard{ProductName: req.ProductName, Alerts: []string{}}, nil
}

func (f *fakePipeline) Comments(_ context.Context, q types.CommentQuery) ([]types.SocialPost, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func newTestRouter(p *fakePipeline) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		Pipeline:    p,
		Metrics:     monitoring.NewMetricsCollector("test", "dev"),
		Health:      monitoring.NewHealthChecker("test", "dev"),
		CORSOrigins: []string{"*"},
	})
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validBody = `{"product_name":"Phone","brand_name":"Acme","platform":"youtube","start_date":"2024-01-01","end_date":"2024-01-31"}`

func TestAnalyzeSentimentBindsRequest(t *testing.T) {
	p := &fakePipeline{}
	w := do(newTestRouter(p), http.MethodPost, "/analyze-sentiment", validBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if p.lastRequest.StartDate.String() != "2024-01-01" || p.lastRequest.EndDate.String() != "2024-01-31" {
		t.Errorf("dates not bound: %+v", p.lastRequest)
	}
	var got types.SentimentAnalysis
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got.TotalPosts != 2 {
		t.Errorf("unexpected body %s (err %v)", w.Body.String(), err)
	}
}

func TestMalformedDateIsBadRequest(t *testing.T) {
	body := strings.Replace(validBody, "2024-01-31", "31/01/2024", 1)
	w := do(newTestRouter(&fakePipeline{}), http.MethodPost, "/predict-sales-loss", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil || env.Error.Code != "invalid_request" {
		t.Errorf("unexpected envelope %s", w.Body.String())
	}
}

func TestPipelineErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", types.ErrInvalidRequest, http.StatusBadRequest},
		{"ingestion", &types.IngestionError{Source: "youtube", Op: "search", StatusCode: 403, Err: errors.New("quota")}, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(newTestRouter(&fakePipeline{err: tc.err}), http.MethodPost, "/predict-sales-loss", validBody)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestDashboardQueryBinding(t *testing.T) {
	p := &fakePipeline{}
	w := do(newTestRouter(p), http.MethodGet, "/get-dashboard-data?product_name=Phone&brand_name=Acme&platform=reddit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	want := types.DashboardRequest{ProductName: "Phone", BrandName: "Acme", Platform: "reddit"}
	if p.lastDash != want {
		t.Errorf("expected %+v, got %+v", want, p.lastDash)
	}
}

func TestCommentsFilterAndEmptyList(t *testing.T) {
	p := &fakePipeline{}
	r := newTestRouter(p)

	w := do(r, http.MethodGet, "/comments?product_name=Phone&sentiment_filter=Negative", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if p.lastQuery.Label != types.LabelNegative {
		t.Errorf("expected negative filter, got %q", p.lastQuery.Label)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %s", w.Body.String())
	}

	if w := do(r, http.MethodGet, "/comments?product_name=Phone&sentiment_filter=angry", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown label, got %d", w.Code)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	r := newTestRouter(&fakePipeline{})
	if w := do(r, http.MethodGet, "/healthcheck", ""); w.Code != http.StatusOK {
		t.Errorf("healthcheck: expected 200, got %d", w.Code)
	}
	do(r, http.MethodPost, "/analyze-sentiment", validBody)
	w := do(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Errorf("metrics endpoint missing request counter: %d", w.Code)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	w := do(newTestRouter(&fakePipeline{}), http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"not_found"`) {
		t.Errorf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestCORSConfig(t *testing.T) {
	if cfg := corsConfig([]string{"*"}); !cfg.AllowAllOrigins || cfg.AllowCredentials {
		t.Errorf("wildcard should allow all origins without credentials: %+v", cfg)
	}
	cfg := corsConfig([]string{"http://localhost:3000"})
	if cfg.AllowAllOrigins || len(cfg.AllowOrigins) != 1 || !cfg.AllowCredentials {
		t.Errorf("unexpected explicit config: %+v", cfg)
	}
}
