package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"polyscope/internal/repository"
)

type MarketHandler struct {
	Repo repository.Repository
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/markets")
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.GET("/:id/trades", h.trades)
	group.GET("/:id/prices", h.prices)
	r.GET("/api/v1/anomalies", h.anomalies)
}

func (h *MarketHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListMarkets(c.Request.Context(), repository.ListMarketsParams{
		Limit:    limit,
		Offset:   offset,
		Category: strQueryPtr(c, "category"),
		Resolved: boolQueryPtr(c, "resolved"),
		Active:   boolQueryPtr(c, "active"),
		Search:   strQueryPtr(c, "search"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"updated_at":          "updated_at",
			"end_date":            "end_date",
			"current_price_cents": "current_price_cents",
			"volume24h_cents":     "volume24h_cents",
			"volume_total_cents":  "volume_total_cents",
			"title":               "title",
		}),
		Asc: boolQueryPtr(c, "asc"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *MarketHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "market id required", nil)
		return
	}
	item, err := h.Repo.GetMarketByConditionID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "market not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *MarketHandler) trades(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "market id required", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListTradesParams{
		Limit:      limit,
		Offset:     offset,
		MarketID:   &id,
		Suspicious: boolQueryPtr(c, "suspicious"),
		Since:      timeQueryPtr(c, "since"),
		OrderBy:    "event_time",
		Asc:        boolPtr(false),
	}
	items, err := h.Repo.ListTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTrades(c.Request.Context(), repository.ListTradesParams{
		MarketID:   &id,
		Suspicious: params.Suspicious,
		Since:      params.Since,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *MarketHandler) prices(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "market id required", nil)
		return
	}
	since := time.Now().UTC().Add(-24 * time.Hour)
	if ptr := timeQueryPtr(c, "since"); ptr != nil {
		since = *ptr
	}
	items, err := h.Repo.ListPricePoints(c.Request.Context(), id, since)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *MarketHandler) anomalies(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	since := time.Now().UTC().Add(-24 * time.Hour)
	if ptr := timeQueryPtr(c, "since"); ptr != nil {
		since = *ptr
	}
	items, err := h.Repo.ListRecentAnomalies(c.Request.Context(), since)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
