package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parleyhq/parley/internal/middleware"
)

type RouterDeps struct {
	Auth            *AuthHandler
	Threads         *ThreadHandler
	Chat            *ChatHandler
	Search          *SearchHandler
	Attachments     *AttachmentHandler
	Files           *FileHandler
	JWTSecret       []byte
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)
	api.GET("/files/:key", deps.Files.Get)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/auth/logout", deps.Auth.Logout)
	authGroup.POST("/auth/password", deps.Auth.ChangePassword)

	authGroup.POST("/threads", deps.Threads.Create)
	authGroup.GET("/threads", deps.Threads.List)
	authGroup.GET("/threads/:id", deps.Threads.Get)
	authGroup.PUT("/threads/:id", deps.Threads.Rename)
	authGroup.DELETE("/threads/:id", deps.Threads.Delete)
	authGroup.GET("/threads/:id/messages", deps.Threads.Messages)
	authGroup.GET("/attachments/:id", deps.Attachments.Get)

	// Routes below call model providers, keep them behind the limiter.
	aiGroup := authGroup.Group("")
	aiGroup.Use(middleware.RateLimit(deps.RateLimitWindow))
	aiGroup.POST("/threads/:id/messages", deps.Chat.Send)
	aiGroup.GET("/search", deps.Search.Search)
	aiGroup.POST("/threads/:id/attachments", deps.Attachments.Upload)
}
