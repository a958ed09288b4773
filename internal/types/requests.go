package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest marks caller mistakes; the HTTP layer maps it to 400.
var ErrInvalidRequest = errors.New("invalid request")

// AnalysisRequest addresses one product/brand/platform over a closed date range.
// It is the input of both analyze-sentiment and predict-sales-loss.
type AnalysisRequest struct {
	ProductName string `json:"product_name"`
	BrandName   string `json:"brand_name"`
	Platform    string `json:"platform"`
	StartDate   Date   `json:"start_date"`
	EndDate     Date   `json:"end_date"`
}

func (r AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.ProductName) == "" {
		return fmt.Errorf("%w: product_name is required", ErrInvalidRequest)
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalidRequest)
	}
	if r.EndDate.Before(r.StartDate.Time) {
		return fmt.Errorf("%w: end_date %s is before start_date %s", ErrInvalidRequest, r.EndDate, r.StartDate)
	}
	return nil
}

func (r AnalysisRequest) PostQuery() PostQuery {
	return PostQuery{
		ProductName: r.ProductName,
		BrandName:   r.BrandName,
		Platform:    r.Platform,
		From:        r.StartDate,
		To:          r.EndDate,
	}
}

type DashboardRequest struct {
	ProductName string `json:"product_name" form:"product_name"`
	BrandName   string `json:"brand_name" form:"brand_name"`
	Platform    string `json:"platform" form:"platform"`
}

func (r DashboardRequest) Validate() error {
	if strings.TrimSpace(r.ProductName) == "" {
		return fmt.Errorf("%w: product_name is required", ErrInvalidRequest)
	}
	return nil
}

// PostQuery selects stored posts; From and To are inclusive.
type PostQuery struct {
	ProductName string
	BrandName   string
	Platform    string
	From        Date
	To          Date
}

// SearchTerm is the ingestion query used when the window has no posts.
func (q PostQuery) SearchTerm() string {
	return strings.TrimSpace(q.BrandName + " " + q.ProductName)
}

type CommentQuery struct {
	ProductName string
	BrandName   string
	Platform    string
	// Label filters by persisted sentiment; empty means no filter.
	Label Label
}
