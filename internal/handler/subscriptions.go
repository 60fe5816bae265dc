package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"polyscope/internal/models"
	"polyscope/internal/repository"
)

type SubscriptionHandler struct {
	Repo repository.Repository
}

func (h *SubscriptionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/subscriptions")
	group.GET("", h.list)
	group.POST("", h.upsert)
	group.GET("/:id", h.get)
	group.DELETE("/:id", h.remove)
}

type upsertSubscriptionRequest struct {
	UserID     string   `json:"user_id"`
	TargetType string   `json:"target_type"`
	TargetID   string   `json:"target_id"`
	Label      *string  `json:"label"`
	AlertKinds []string `json:"alert_kinds"`
	Active     *bool    `json:"active"`
}

func validTargetType(t string) bool {
	switch t {
	case models.SubscriptionTypeAddress, models.SubscriptionTypeMarket, models.SubscriptionTypeCategory:
		return true
	}
	return false
}

func validAlertKind(k string) bool {
	switch k {
	case models.AlertKindLargeTrade, models.AlertKindHighSuspicion, models.AlertKindPriceSpike:
		return true
	}
	return false
}

func (h *SubscriptionHandler) upsert(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req upsertSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.TargetType = strings.ToLower(strings.TrimSpace(req.TargetType))
	req.TargetID = strings.TrimSpace(req.TargetID)
	if req.UserID == "" || req.TargetID == "" || !validTargetType(req.TargetType) {
		Error(c, http.StatusBadRequest, "user_id, target_type(address|market|category) and target_id required", nil)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	kinds := make([]string, 0, len(req.AlertKinds))
	seen := map[string]struct{}{}
	for _, k := range req.AlertKinds {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !validAlertKind(k) {
			Error(c, http.StatusBadRequest, "unknown alert kind", map[string]any{"kind": k})
			return
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kinds = append(kinds, k)
	}
	// A live subscription watching nothing would never fire; reject it.
	if active && len(kinds) == 0 {
		Error(c, http.StatusBadRequest, "alert_kinds required for an active subscription", nil)
		return
	}
	kindsJSON, err := json.Marshal(kinds)
	if err != nil {
		Error(c, http.StatusInternalServerError, "encode alert kinds", nil)
		return
	}

	now := time.Now().UTC()
	item := &models.AlertSubscription{
		UserID:     req.UserID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		AlertKinds: datatypes.JSON(kindsJSON),
		Active:     active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label != "" {
			item.Label = &label
		}
	}
	if err := h.Repo.UpsertSubscription(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

func (h *SubscriptionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListSubscriptions(c.Request.Context(), repository.ListSubscriptionsParams{
		Limit:      limit,
		Offset:     offset,
		UserID:     strQueryPtr(c, "user_id"),
		TargetType: strQueryPtr(c, "target_type"),
		Active:     boolQueryPtr(c, "active"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *SubscriptionHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uintParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetSubscriptionByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "subscription not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *SubscriptionHandler) remove(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uintParam(c, "id")
	userID := strings.TrimSpace(c.Query("user_id"))
	if id == 0 || userID == "" {
		Error(c, http.StatusBadRequest, "id and user_id required", nil)
		return
	}
	if err := h.Repo.DeleteSubscription(c.Request.Context(), userID, id); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"id": id, "deleted": true}, nil)
}
