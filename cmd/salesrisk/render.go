package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sentiment-sales-risk/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(72)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(24)

	lowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	mediumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	highStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	alertStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#EF4444")).
			Padding(0, 2).
			Width(72)
)

func riskStyle(level types.RiskLevel) lipgloss.Style {
	switch level {
	case types.RiskHigh:
		return highStyle
	case types.RiskMedium:
		return mediumStyle
	default:
		return lowStyle
	}
}

func labelStyleFor(l types.Label) lipgloss.Style {
	switch l {
	case types.LabelNegative:
		return highStyle
	case types.LabelPositive:
		return lowStyle
	default:
		return mediumStyle
	}
}

func kv(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func subject(product, brand string) string {
	if brand == "" {
		return product
	}
	return brand + " " + product
}

func renderAnalysis(a *types.SentimentAnalysis) string {
	platform := a.Platform
	if platform == "" {
		platform = "all"
	}
	body := strings.Join([]string{
		kv("Platform", platform),
		kv("Window", fmt.Sprintf("%s .. %s", a.StartDate, a.EndDate)),
		kv("Posts", fmt.Sprintf("%d", a.TotalPosts)),
		kv("Average sentiment", fmt.Sprintf("%+.3f", a.AverageSentiment)),
		kv("Negative share", fmt.Sprintf("%.1f%%", a.NegativePercentage)),
	}, "\n")
	return titleStyle.Render("Sentiment: "+a.ProductName) + "\n" + panelStyle.Render(body)
}

func renderPrediction(p *types.PredictionResult) string {
	body := strings.Join([]string{
		kv("Risk level", riskStyle(p.RiskLevel).Render(string(p.RiskLevel))),
		kv("Loss probability", fmt.Sprintf("%.1f%%", p.LossProbability*100)),
		kv("Predicted drop", fmt.Sprintf("%.2f%%", p.PredictedDropPct)),
		kv("Confidence", fmt.Sprintf("%.2f", p.Confidence)),
		"",
		p.Explanation,
	}, "\n")
	return titleStyle.Render("Sales risk: "+subject(p.ProductName, p.BrandName)) + "\n" + panelStyle.Render(body)
}

func renderDashboard(d *types.Dashboard) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Dashboard: " + subject(d.ProductName, d.BrandName)))
	b.WriteString("\n")

	kpis := strings.Join([]string{
		kv("Average sentiment", fmt.Sprintf("%+.3f", d.KPIs.AverageSentiment)),
		kv("Negative share", fmt.Sprintf("%.1f%%", d.KPIs.NegativePercentage)),
		kv("Predicted sales drop", fmt.Sprintf("%.2f%%", d.KPIs.PredictedSalesDrop)),
		kv("Risk level", riskStyle(d.KPIs.RiskLevel).Render(string(d.KPIs.RiskLevel))),
		kv("Distribution", fmt.Sprintf("+%d / =%d / -%d",
			d.SentimentDistribution.Positive, d.SentimentDistribution.Neutral, d.SentimentDistribution.Negative)),
	}, "\n")
	b.WriteString(panelStyle.Render(kpis))
	b.WriteString("\n")

	if n := len(d.SalesSeries); n > 0 {
		first, last := d.SalesSeries[0], d.SalesSeries[n-1]
		sales := strings.Join([]string{
			kv("Days", fmt.Sprintf("%d (%s .. %s)", n, first.Date, last.Date)),
			kv("Revenue first day", fmt.Sprintf("%.2f (predicted %.2f)", first.ActualRevenue, first.PredictedRevenue)),
			kv("Revenue last day", fmt.Sprintf("%.2f (predicted %.2f)", last.ActualRevenue, last.PredictedRevenue)),
			kv("Days with posts", fmt.Sprintf("%d", len(d.SentimentTrend))),
		}, "\n")
		b.WriteString(panelStyle.Render(sales))
		b.WriteString("\n")
	}

	if len(d.AIInsights) > 0 {
		b.WriteString(panelStyle.Render("Insights\n" + bullets(d.AIInsights)))
		b.WriteString("\n")
	}
	if len(d.Alerts) > 0 {
		b.WriteString(alertStyle.Render("Alerts\n" + bullets(d.Alerts)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderComments(posts []types.SocialPost) string {
	if len(posts) == 0 {
		return "No comments stored for this product."
	}
	lines := make([]string, 0, len(posts))
	for _, p := range posts {
		tag := "unscored"
		if p.Sentiment != nil {
			tag = labelStyleFor(p.Sentiment.Label).Render(fmt.Sprintf("%-8s %+.2f", p.Sentiment.Label, p.Sentiment.Score))
		}
		lines = append(lines, fmt.Sprintf("%s  %-8s %s  %s", p.PostedOn, p.Platform, tag, truncate(p.Content, 60)))
	}
	return panelStyle.Width(110).Render(strings.Join(lines, "\n"))
}

func bullets(items []string) string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = "• " + s
	}
	return strings.Join(out, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
