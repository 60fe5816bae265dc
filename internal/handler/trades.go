package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"polyscope/internal/models"
	"polyscope/internal/repository"
)

type TradeHandler struct {
	Repo repository.Repository
}

func (h *TradeHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/trades")
	group.GET("", h.list)
	group.GET("/whales", h.whales)
}

func (h *TradeHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	whaleOnly := false
	if ptr := boolQueryPtr(c, "whale_only"); ptr != nil {
		whaleOnly = *ptr
	}
	params := repository.ListTradesParams{
		Limit:      limit,
		Offset:     offset,
		MarketID:   strQueryPtr(c, "market_id"),
		Address:    strQueryPtr(c, "address"),
		WhaleOnly:  whaleOnly,
		Suspicious: boolQueryPtr(c, "suspicious"),
		Since:      timeQueryPtr(c, "since"),
		OrderBy:    "event_time",
		Asc:        boolQueryPtr(c, "asc"),
	}
	items, err := h.Repo.ListTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTrades(c.Request.Context(), repository.ListTradesParams{
		MarketID:   params.MarketID,
		Address:    params.Address,
		WhaleOnly:  params.WhaleOnly,
		Suspicious: params.Suspicious,
		Since:      params.Since,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// whaleTradeView flattens the trade with its market and, when the AI side
// has produced one, the latest prediction for the market.
type whaleTradeView struct {
	Trade      models.Trade       `json:"trade"`
	Market     *models.Market     `json:"market,omitempty"`
	Prediction *models.Prediction `json:"prediction,omitempty"`
}

func (h *TradeHandler) whales(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	rows, err := h.Repo.ListWhaleTrades(c.Request.Context(), repository.ListTradesParams{
		Limit:     limit,
		Offset:    offset,
		MarketID:  strQueryPtr(c, "market_id"),
		Address:   strQueryPtr(c, "address"),
		WhaleOnly: true,
		Since:     timeQueryPtr(c, "since"),
		OrderBy:   "event_time",
		Asc:       boolPtr(false),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	views := make([]whaleTradeView, 0, len(rows))
	for _, row := range rows {
		views = append(views, whaleTradeView{
			Trade:      row.Trade,
			Market:     row.Market,
			Prediction: row.Prediction,
		})
	}
	Ok(c, views, nil)
}
