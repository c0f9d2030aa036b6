package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parleyhq/parley/internal/pkg/errcode"
	"github.com/parleyhq/parley/internal/pkg/response"
	"github.com/parleyhq/parley/internal/service"
)

type ThreadHandler struct {
	threads *service.ThreadService
}

func NewThreadHandler(threads *service.ThreadService) *ThreadHandler {
	return &ThreadHandler{threads: threads}
}

type threadRequest struct {
	Title string `json:"title"`
}

func (h *ThreadHandler) Create(c *gin.Context) {
	var req threadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	thread, err := h.threads.Create(c.Request.Context(), getUserID(c), req.Title)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, thread)
}

func (h *ThreadHandler) List(c *gin.Context) {
	threads, err := h.threads.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, threads)
}

func (h *ThreadHandler) Get(c *gin.Context) {
	thread, err := h.threads.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, thread)
}

func (h *ThreadHandler) Rename(c *gin.Context) {
	var req threadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.threads.Rename(c.Request.Context(), getUserID(c), c.Param("id"), req.Title); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ThreadHandler) Delete(c *gin.Context) {
	if err := h.threads.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ThreadHandler) Messages(c *gin.Context) {
	limit := 0
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	messages, err := h.threads.History(c.Request.Context(), getUserID(c), c.Param("id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, messages)
}
