package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"polyscope/internal/models"
	"polyscope/internal/repository"
)

type AddressHandler struct {
	Repo repository.Repository
}

func (h *AddressHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/addresses")
	group.GET("", h.list)
	group.GET("/overview", h.overview)
	group.GET("/leaderboard", h.leaderboard)
	group.GET("/compare", h.compare)
	group.GET("/:address", h.get)
	group.GET("/:address/trades", h.trades)
}

// addressView adds the derived fields the dashboard renders alongside the
// stored counters. win_rate is a percentage in [0,100].
type addressView struct {
	models.Address
	WinRate           float64 `json:"win_rate"`
	AvgTradeSizeCents int64   `json:"avg_trade_size_cents"`
}

func toAddressView(item models.Address) addressView {
	return addressView{
		Address:           item,
		WinRate:           item.WinRate() * 100,
		AvgTradeSizeCents: item.AvgTradeSizeCents(),
	}
}

func (h *AddressHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListAddressesParams{
		Limit:      limit,
		Offset:     offset,
		Search:     strQueryPtr(c, "search"),
		Suspicious: boolQueryPtr(c, "suspicious"),
		MinScore:   intQueryPtr(c, "min_score"),
		MinTrades:  int64QueryPtr(c, "min_trades"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"suspicion_score":    "suspicion_score",
			"total_trades":       "total_trades",
			"total_volume_cents": "total_volume_cents",
			"settled_count":      "settled_count",
			"last_active_at":     "last_active_at",
			"first_seen_at":      "first_seen_at",
		}),
		Asc: boolQueryPtr(c, "asc"),
	}
	items, err := h.Repo.ListAddresses(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountAddresses(c.Request.Context(), repository.ListAddressesParams{
		Search:     params.Search,
		Suspicious: params.Suspicious,
		MinScore:   params.MinScore,
		MinTrades:  params.MinTrades,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	views := make([]addressView, 0, len(items))
	for _, item := range items {
		views = append(views, toAddressView(item))
	}
	Ok(c, views, paginationMeta(limit, offset, total))
}

func (h *AddressHandler) overview(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	stats, err := h.Repo.AddressOverview(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, stats, nil)
}

func (h *AddressHandler) leaderboard(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 20)
	items, err := h.Repo.ListAddresses(c.Request.Context(), repository.ListAddressesParams{
		Limit:   limit,
		OrderBy: "suspicion_score",
		Asc:     boolPtr(false),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	views := make([]addressView, 0, len(items))
	for _, item := range items {
		views = append(views, toAddressView(item))
	}
	Ok(c, views, nil)
}

func (h *AddressHandler) compare(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	raw := strings.TrimSpace(c.Query("addresses"))
	if raw == "" {
		Error(c, http.StatusBadRequest, "addresses required", nil)
		return
	}
	parts := strings.Split(raw, ",")
	if len(parts) > 10 {
		Error(c, http.StatusBadRequest, "at most 10 addresses", nil)
		return
	}
	out := make([]addressView, 0, len(parts))
	for _, part := range parts {
		addr := strings.TrimSpace(part)
		if addr == "" {
			continue
		}
		item, err := h.Repo.GetAddress(c.Request.Context(), addr)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		if item == nil {
			continue
		}
		out = append(out, toAddressView(*item))
	}
	Ok(c, out, nil)
}

func (h *AddressHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	addr := strings.TrimSpace(c.Param("address"))
	if addr == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	item, err := h.Repo.GetAddress(c.Request.Context(), addr)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "address not found", nil)
		return
	}
	stats, err := h.Repo.AddressTradeStats(c.Request.Context(), addr)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"address":             toAddressView(*item),
		"pre_move_trades":     stats.PreMoveTrades,
		"near_extrema_trades": stats.NearExtremaTrades,
		"distinct_categories": stats.DistinctCategories,
	}, nil)
}

func (h *AddressHandler) trades(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	addr := strings.TrimSpace(c.Param("address"))
	if addr == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListTradesParams{
		Limit:   limit,
		Offset:  offset,
		Address: &addr,
		Since:   timeQueryPtr(c, "since"),
		OrderBy: "event_time",
		Asc:     boolPtr(false),
	}
	items, err := h.Repo.ListTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTrades(c.Request.Context(), repository.ListTradesParams{
		Address: &addr,
		Since:   params.Since,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
