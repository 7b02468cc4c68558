package router

import (
	"github.com/gin-gonic/gin"

	"inkgen/config"
	"inkgen/internal/handler"
	"inkgen/utils"
)

// InitRouter builds API routes. Everything except the root and health probes
// and the auth endpoints requires a bearer token.
func InitRouter() *gin.Engine {
	r := gin.Default()
	r.Use(utils.CORSMiddleware(config.AppConfig.CORSAllowedOrigins))

	r.GET("/", handler.Root)
	r.GET("/health", handler.Health)

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", handler.Login)
		auth.POST("/signup", handler.Signup)
	}

	protected := r.Group("")
	protected.Use(utils.AuthMiddleware())

	downloads := protected.Group("/downloads")
	{
		downloads.POST("", handler.CreateDownload)
		downloads.GET("", handler.ListDownloads)
		downloads.GET("/:id", handler.GetDownload)
		downloads.DELETE("/:id", handler.DeleteDownload)
		downloads.POST("/:id/cancel", handler.CancelDownload)
	}

	ai := protected.Group("/api/ai")
	{
		ai.POST("/generate", handler.Generate)
		ai.GET("/generations", handler.ListGenerations)
	}

	return r
}
