package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/gitlens/backend/config"
	"github.com/gitlens/backend/internal/handler"
)

func Setup(
	cfg *config.Config,
	repoHandler *handler.RepositoryHandler,
	taskHandler *handler.TaskHandler,
	chatHandler *handler.ChatHandler,
	configHandler *handler.ConfigHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	// 报告和文件树内容偏大，压缩后再回
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	api := r.Group("/api")
	{
		repos := api.Group("/repositories")
		{
			repos.POST("", repoHandler.Create)
			repos.GET("", repoHandler.List)
			repos.GET("/:id", repoHandler.Get)
			repos.DELETE("/:id", repoHandler.Delete)
			repos.POST("/:id/refresh", repoHandler.Refresh)
			repos.POST("/:id/analyze", repoHandler.Analyze)
			repos.GET("/:id/tasks", repoHandler.GetTasks)
			repos.GET("/:id/reports", repoHandler.GetReports)
			repos.GET("/:id/reports/:type", repoHandler.GetLatestReport)
			repos.GET("/:id/depgraph", repoHandler.GetDependencyGraph)
			repos.GET("/:id/findings", repoHandler.GetFindings)

			repos.POST("/:id/chat", chatHandler.Chat)
			repos.GET("/:id/chat", chatHandler.History)
			repos.GET("/:id/chat/export", chatHandler.Export)
			repos.GET("/:id/chat/suggestions", chatHandler.Suggestions)
			repos.DELETE("/:id/chat", chatHandler.Clear)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("/status", taskHandler.GetQueueStatus)
			tasks.POST("/cleanup", taskHandler.CleanupStuck)
			tasks.GET("/:id", taskHandler.Get)
			tasks.POST("/:id/cancel", taskHandler.Cancel)
			tasks.POST("/:id/retry", taskHandler.Retry)
		}

		api.GET("/config", configHandler.Get)
		api.PUT("/config", configHandler.Update)
	}

	return r
}
