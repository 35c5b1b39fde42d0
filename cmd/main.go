package main

import (
	"campaignflow/internal/config"
	"campaignflow/internal/controller"
	"campaignflow/internal/middleware"
	"campaignflow/internal/router"
	"campaignflow/internal/service"
	"campaignflow/internal/task"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化依赖
	deps := initDependencies(cfg)

	// 3. 启动定时任务
	initTasks(cfg, deps)

	// 4. 初始化路由
	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	router.InitRoutes(r, deps.Controllers, deps.Issuer)

	// 5. 启动服务
	startServer(cfg.Server.Port, r, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Services    *Services
	Issuer      *middleware.TokenIssuer
	Controllers *router.Controllers
	SweepTask   *task.WorkspaceSweepTask
}

// Services 服务集合
type Services struct {
	AI        *service.AIService
	Storage   *service.StorageService
	Workspace *service.WorkspaceService
}

// ==================== 初始化函数 ====================

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config) *Dependencies {
	// -------- 存储 & AI 服务 --------
	aiSvc := service.NewAIService(&service.AIConfig{
		ApiKey:        cfg.Gemini.APIKey,
		BaseURL:       cfg.Gemini.BaseURL,
		TextModel:     cfg.Gemini.TextModel,
		ChatModel:     cfg.Gemini.ChatModel,
		ImageModel:    cfg.Gemini.ImageModel,
		ProImageModel: cfg.Gemini.ProImageModel,
		ProxyURL:      cfg.Gemini.ProxyURL,
		Timeout:       cfg.Gemini.Timeout,
	})
	storageSvc := initStorageService(cfg)

	// -------- 业务服务 --------
	services := &Services{
		AI:        aiSvc,
		Storage:   storageSvc,
		Workspace: service.NewWorkspaceService(aiSvc, aiSvc, cfg.Gemini.BillingAPIKey, cfg.Workspace.TTL),
	}

	issuer := middleware.NewTokenIssuer(&middleware.JWTConfig{
		SecretKey: cfg.JWT.Secret,
		TokenTTL:  cfg.JWT.TokenTTL,
		Issuer:    "campaignflow",
	})

	return &Dependencies{
		Services:    services,
		Issuer:      issuer,
		Controllers: initControllers(services, issuer),
	}
}

// initStorageService 初始化存储服务，失败时头图发布不可用
func initStorageService(cfg *config.Config) *service.StorageService {
	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		CDNDomain: cfg.Storage.CDNDomain,
		BasePath:  cfg.Storage.BasePath,
	})
	if err != nil {
		log.Printf("警告: 存储服务初始化失败: %v", err)
		storageSvc, _ = service.NewStorageService(&service.StorageConfig{})
	}
	return storageSvc
}

// initControllers 初始化所有控制器
func initControllers(svc *Services, issuer *middleware.TokenIssuer) *router.Controllers {
	return &router.Controllers{
		Workspace:  controller.NewWorkspaceController(svc.Workspace, issuer),
		Campaign:   controller.NewCampaignController(svc.Workspace, svc.Storage),
		Credential: controller.NewCredentialController(svc.Workspace),
		Chat:       controller.NewChatController(svc.Workspace),
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(cfg *config.Config, deps *Dependencies) {
	if cfg.Workspace.TTL <= 0 {
		log.Println("WORKSPACE_TTL <= 0，不回收空闲工作区")
		return
	}

	sweepTask := task.NewWorkspaceSweepTask(deps.Services.Workspace, cfg.Workspace.SweepSpec)
	if err := sweepTask.Start(); err != nil {
		log.Fatalf("无法启动工作区回收任务: %v", err)
	}
	deps.SweepTask = sweepTask

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(port string, r *gin.Engine, deps *Dependencies) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 生成请求可能持续数十秒，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("服务强制关闭: %v", err)
	}

	if deps.SweepTask != nil {
		deps.SweepTask.Stop()
	}
	deps.Services.Workspace.Shutdown()

	log.Println("服务已退出")
}
