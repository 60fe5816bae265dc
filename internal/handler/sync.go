package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"polyscope/internal/repository"
)

type SyncHandler struct {
	Repo repository.Repository
}

func (h *SyncHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/sync/status", h.status)
}

func (h *SyncHandler) status(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListSyncStates(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
