package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/gitlens/backend/config"
	"github.com/gitlens/backend/internal/eventbus"
	"github.com/gitlens/backend/internal/handler"
	"github.com/gitlens/backend/internal/pkg/database"
	"github.com/gitlens/backend/internal/pkg/github"
	"github.com/gitlens/backend/internal/pkg/llm"
	"github.com/gitlens/backend/internal/repository"
	"github.com/gitlens/backend/internal/router"
	"github.com/gitlens/backend/internal/service"
	"github.com/gitlens/backend/internal/service/orchestrator"
	"github.com/gitlens/backend/internal/subscriber"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()

	if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化 Repository
	repoRepo := repository.NewRepoRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	reportRepo := repository.NewReportRepository(db)
	findingRepo := repository.NewFindingRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// GitHub 与 LLM 客户端
	githubClient, err := github.NewClient(&cfg.GitHub)
	if err != nil {
		log.Fatalf("Failed to initialize GitHub client: %v", err)
	}
	llmClient := llm.NewClient(cfg)

	// 初始化 Service
	snapshot := service.NewSnapshotService(cfg, githubClient)
	repoService := service.NewRepositoryService(cfg, repoRepo, taskRepo, reportRepo, findingRepo, chatRepo, githubClient, snapshot)
	taskService := service.NewTaskService(cfg, repoRepo, taskRepo, reportRepo, findingRepo, githubClient, snapshot, llmClient)
	chatService := service.NewChatService(cfg, repoRepo, reportRepo, chatRepo, snapshot, llmClient)

	// 事件总线：任务终态驱动仓库状态聚合，新增仓库驱动元数据拉取
	taskBus := eventbus.NewTaskEventBus()
	repoBus := eventbus.NewRepositoryEventBus()
	subscriber.NewTaskEventSubscriber(repoService).Register(taskBus)
	subscriber.NewRepositoryEventSubscriber(repoService).Register(repoBus)
	taskService.SetEventBus(taskBus)
	repoService.SetEventBus(repoBus)

	// 初始化全局任务编排器
	if err := orchestrator.InitGlobalOrchestrator(cfg.Analysis.Workers, taskService); err != nil {
		log.Fatalf("Failed to initialize orchestrator: %v", err)
	}
	taskService.SetOrchestrator(orchestrator.GetGlobalOrchestrator())
	defer orchestrator.ShutdownGlobalOrchestrator()

	// 初始化 Handler
	repoHandler := handler.NewRepositoryHandler(repoService, taskService)
	taskHandler := handler.NewTaskHandler(taskService)
	chatHandler := handler.NewChatHandler(chatService)
	configHandler := handler.NewConfigHandler(cfg)

	// 启动时清理卡住的任务（超过 10 分钟的运行中任务）
	cleanupStuckTasks(taskService)

	// 设置路由
	r := router.Setup(cfg, repoHandler, taskHandler, chatHandler, configHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s...", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	klog.V(6).Info("收到退出信号，开始优雅关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		klog.Errorf("HTTP 服务关闭失败: %v", err)
	}
}

// cleanupStuckTasks 清理启动前卡住的任务
func cleanupStuckTasks(taskService *service.TaskService) {
	timeout := 10 * time.Minute

	affected, err := taskService.CleanupStuckTasks(timeout)
	if err != nil {
		klog.V(6).Infof("清理卡住任务失败: %v", err)
		return
	}

	if affected > 0 {
		klog.V(6).Infof("启动时清理了 %d 个卡住的任务", affected)
	}
}
