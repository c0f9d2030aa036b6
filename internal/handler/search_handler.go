package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parleyhq/parley/internal/pkg/errcode"
	"github.com/parleyhq/parley/internal/pkg/response"
	"github.com/parleyhq/parley/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.Error(c, errcode.ErrInvalid, "q is required")
		return
	}
	limit := 0
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	results, err := h.search.Search(c.Request.Context(), getUserID(c), query, c.Query("thread_id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, results)
}
