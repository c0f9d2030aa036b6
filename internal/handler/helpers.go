package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/middleware"
	"github.com/parleyhq/parley/internal/pkg/errcode"
	appErr "github.com/parleyhq/parley/internal/pkg/errors"
	"github.com/parleyhq/parley/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

// handleError maps service errors onto stable numeric codes. Provider
// failures get their own codes so the client can distinguish "try again"
// from a hard rejection.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid), errors.Is(err, ai.ErrInvalidInput):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, ai.ErrContentPolicy):
		response.Error(c, errcode.ErrAIContentPolicy, err.Error())
	case errors.Is(err, ai.ErrEmptyReply):
		response.Error(c, errcode.ErrAIEmptyReply, "model returned an empty reply, please retry")
	case errors.Is(err, ai.ErrUnavailable), errors.Is(err, ai.ErrDimensionMismatch):
		response.Error(c, errcode.ErrAIUnavailable, "model unavailable, please retry later")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
