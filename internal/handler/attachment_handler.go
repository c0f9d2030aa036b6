package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/pkg/errcode"
	"github.com/parleyhq/parley/internal/pkg/response"
	"github.com/parleyhq/parley/internal/service"
)

type AttachmentHandler struct {
	attachments *service.AttachmentService
}

func NewAttachmentHandler(attachments *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

type uploadResponse struct {
	Attachment *model.Attachment `json:"attachment"`
	Chunks     int               `json:"chunks"`
}

func (h *AttachmentHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	attachment, chunks, err := h.attachments.Upload(
		c.Request.Context(), getUserID(c), c.Param("id"),
		header.Filename, contentType, file, header.Size,
	)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, uploadResponse{Attachment: attachment, Chunks: chunks})
}

func (h *AttachmentHandler) Get(c *gin.Context) {
	attachment, err := h.attachments.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, attachment)
}
