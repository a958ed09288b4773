package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"sentiment-sales-risk/internal/interfaces"
	"sentiment-sales-risk/internal/types"
)

type Handler struct {
	pipeline interfaces.Pipeline
}

func NewHandler(p interfaces.Pipeline) *Handler {
	return &Handler{pipeline: p}
}

func (h *Handler) AnalyzeSentiment(c *gin.Context) {
	var req types.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.pipeline.AnalyzeSentiment(c.Request.Context(), req)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	RespondOK(c, res)
}

func (h *Handler) PredictSalesLoss(c *gin.Context) {
	var req types.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.pipeline.PredictSalesLoss(c.Request.Context(), req)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	RespondOK(c, res)
}

func (h *Handler) GetDashboardData(c *gin.Context) {
	var req types.DashboardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.pipeline.BuildDashboard(c.Request.Context(), req)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	RespondOK(c, res)
}

func (h *Handler) GetComments(c *gin.Context) {
	q := types.CommentQuery{
		ProductName: c.Query("product_name"),
		BrandName:   c.Query("brand_name"),
		Platform:    c.Query("platform"),
	}
	if f := c.Query("sentiment_filter"); f != "" {
		label, err := types.ParseLabel(f)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		q.Label = label
	}

	posts, err := h.pipeline.Comments(c.Request.Context(), q)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	if posts == nil {
		posts = []types.SocialPost{}
	}
	RespondOK(c, posts)
}

func (h *Handler) NotFound(c *gin.Context) {
	RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("no route for %s %s", c.Request.Method, c.Request.URL.Path))
}
