package api

import (
	"go-markboard/internal/middleware"
	"go-markboard/internal/service"
	internalws "go-markboard/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies 路由需要的全部服务
type Dependencies struct {
	DB    *gorm.DB
	Auth  *service.AuthService
	Files *service.FileService
	Teams *service.TeamService
	Admin *service.AdminService
	Hub   *internalws.Hub
}

func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.GinZapLogger(), middleware.Recovery())

	authHandler := NewAuthHandler(deps.Auth)
	fileHandler := NewFileHandler(deps.Files)
	teamHandler := NewTeamHandler(deps.Teams)
	adminHandler := NewAdminHandler(deps.Admin)
	wsHandler := NewWSHandler(deps.Hub, deps.Admin)
	healthHandler := NewHealthHandler(deps.DB, deps.Files)

	r.GET("/health", healthHandler.Health)

	// 公开路由
	r.POST("/api/auth/register", authHandler.Register)
	r.POST("/api/auth/login", authHandler.Login)

	// 受保护的路由
	protected := r.Group("/api", middleware.AuthMiddleware(deps.Auth))
	{
		protected.GET("/auth/me", authHandler.Me)

		files := protected.Group("/files")
		files.GET("", fileHandler.List)
		files.POST("", fileHandler.Create)
		files.GET("/:id", fileHandler.Read)
		files.PATCH("/:id", fileHandler.Update)
		files.DELETE("/:id", fileHandler.Delete)
		files.GET("/:id/content", fileHandler.Content)
		files.GET("/:id/versions", fileHandler.Versions)

		teams := protected.Group("/teams")
		teams.GET("", teamHandler.ListMine)
		teams.GET("/count", teamHandler.Count)
		teams.GET("/available", teamHandler.ListAvailable)
		teams.POST("", teamHandler.Create)
		teams.GET("/:id", teamHandler.Details)
		teams.DELETE("/:id", teamHandler.Disband)
		teams.POST("/:id/join", teamHandler.Join)
		teams.POST("/:id/leave", teamHandler.Leave)
		teams.POST("/:id/kick", teamHandler.Kick)
		teams.GET("/:id/users", teamHandler.Members)
		teams.POST("/:id/transfer", teamHandler.Transfer)
		teams.PUT("/:id/users/:user_id/role", teamHandler.SetRole)

		admin := protected.Group("/admin", middleware.RequireAdmin())
		admin.GET("/users", adminHandler.Users)
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/activity", adminHandler.Activity)
		admin.GET("/activity/stream", wsHandler.ActivityStream)
		admin.POST("/storage/sweep", adminHandler.Sweep)
	}

	return r
}
