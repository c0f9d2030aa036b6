package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parleyhq/parley/internal/pkg/errcode"
	"github.com/parleyhq/parley/internal/pkg/response"
	"github.com/parleyhq/parley/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Content string `json:"content"`
}

// Send runs a full chat turn and returns the assistant message.
func (h *ChatHandler) Send(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	reply, err := h.chat.Send(c.Request.Context(), getUserID(c), c.Param("id"), req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, reply)
}
