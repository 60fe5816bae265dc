package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"polyscope/internal/repository"
)

type NotificationHandler struct {
	Repo repository.Repository
}

func (h *NotificationHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/notifications")
	group.GET("", h.list)
	group.GET("/unread-count", h.unreadCount)
	group.POST("/:id/read", h.markRead)
	group.POST("/read-all", h.markAllRead)
}

func (h *NotificationHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		Error(c, http.StatusBadRequest, "user_id required", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListNotifications(c.Request.Context(), repository.ListNotificationsParams{
		Limit:     limit,
		Offset:    offset,
		UserID:    &userID,
		Unread:    boolQueryPtr(c, "unread"),
		AlertKind: strQueryPtr(c, "kind"),
		Since:     timeQueryPtr(c, "since"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *NotificationHandler) unreadCount(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		Error(c, http.StatusBadRequest, "user_id required", nil)
		return
	}
	count, err := h.Repo.CountUnreadNotifications(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"unread": count}, nil)
}

func (h *NotificationHandler) markRead(c *gin.Context) {
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
	if err := h.Repo.MarkNotificationRead(c.Request.Context(), userID, id); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"id": id, "read": true}, nil)
}

func (h *NotificationHandler) markAllRead(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		Error(c, http.StatusBadRequest, "user_id required", nil)
		return
	}
	updated, err := h.Repo.MarkAllNotificationsRead(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"updated": updated}, nil)
}
