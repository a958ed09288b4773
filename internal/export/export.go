// Package export writes dashboard series as CSV reports.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sentiment-sales-risk/internal/logger"
	"sentiment-sales-risk/internal/types"
)

var header = []string{"date", "actual_revenue", "predicted_revenue", "average_sentiment", "total_posts"}

type row struct {
	Date      types.Date
	Actual    float64
	Predicted float64
	Sentiment float64
	Posts     int
	hasSales  bool
}

// Dir is where report files go; SALESRISK_EXPORT_DIR overrides it.
func Dir() string {
	if v := os.Getenv("SALESRISK_EXPORT_DIR"); v != "" {
		return v
	}
	return "exports"
}

// FilePath names the report for one dashboard on one day.
func FilePath(dir string, d *types.Dashboard, day time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.csv", slug(d.BrandName), slug(d.ProductName), day.Format(types.DateLayout))
	return filepath.Join(dir, name)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "all"
	}
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}), "-")
}

// merge joins the sales series and the sentiment trend on date.
func merge(d *types.Dashboard) []*row {
	byDate := map[string]*row{}
	get := func(day types.Date) *row {
		k := day.String()
		r := byDate[k]
		if r == nil {
			r = &row{Date: day}
			byDate[k] = r
		}
		return r
	}
	for _, p := range d.SalesSeries {
		r := get(p.Date)
		r.Actual = p.ActualRevenue
		r.Predicted = p.PredictedRevenue
		r.hasSales = true
	}
	for _, p := range d.SentimentTrend {
		r := get(p.Date)
		r.Sentiment = p.AverageSentiment
		r.Posts = p.TotalPosts
	}

	rows := make([]*row, 0, len(byDate))
	for _, r := range byDate {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date.Time) })
	return rows
}

// WriteDashboardCSV writes one line per day followed by a TOTAL line with
// revenue sums and the overall post count. Money is rounded to cents.
func WriteDashboardCSV(w io.Writer, d *types.Dashboard) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	totalActual, totalPredicted := decimal.Zero, decimal.Zero
	var totalPosts int
	for _, r := range merge(d) {
		actual, predicted := "", ""
		if r.hasSales {
			a := decimal.NewFromFloat(r.Actual).Round(2)
			p := decimal.NewFromFloat(r.Predicted).Round(2)
			actual, predicted = a.StringFixed(2), p.StringFixed(2)
			totalActual = totalActual.Add(a)
			totalPredicted = totalPredicted.Add(p)
		}
		rec := []string{r.Date.String(), actual, predicted, strconv.FormatFloat(r.Sentiment, 'f', 4, 64), strconv.Itoa(r.Posts)}
		if err := cw.Write(rec); err != nil {
			return err
		}
		totalPosts += r.Posts
	}
	if err := cw.Write([]string{"TOTAL", totalActual.StringFixed(2), totalPredicted.StringFixed(2), "", strconv.Itoa(totalPosts)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteDashboardFile writes the report under dir and returns its path.
func WriteDashboardFile(ctx context.Context, dir string, d *types.Dashboard, day time.Time) (string, error) {
	outPath := FilePath(dir, d, day)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := WriteDashboardCSV(out, d); err != nil {
		logger.ErrorWithErr(ctx, "Dashboard export failed", err, "path", outPath)
		return "", err
	}
	logger.Info(ctx, "Dashboard exported", "path", outPath, "product", d.ProductName, "brand", d.BrandName)
	return outPath, nil
}
