package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	orchestratorapp "transcode-orchestrator/ddd/application/app"
	"transcode-orchestrator/pkg/config"
	"transcode-orchestrator/pkg/logger"
	"transcode-orchestrator/pkg/manager"
	"transcode-orchestrator/pkg/middleware"
	"transcode-orchestrator/pkg/restapi"

	// 注册资源插件
	_ "transcode-orchestrator/internal/resource"

	// 注册HTTP路由和后台组件
	_ "transcode-orchestrator/ddd/adapter/component"
	_ "transcode-orchestrator/ddd/adapter/http"
)

// Run 启动服务并阻塞到收到退出信号
func Run() {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobalConfig(cfg)

	log := logger.NewLogger(cfg)
	logger.SetGlobalLogger(log)
	defer log.Close()

	logger.Infof("Starting transcode orchestrator port=%d store=%s", cfg.Server.Port, cfg.Store.Backend)

	// 打开资源（redis/minio/kafka按配置按需开启）
	manager.MustInitResources()
	defer manager.CloseResources()

	// 装配应用服务
	app := orchestratorapp.DefaultOrchestratorApp()
	defer app.Close()

	deps := &manager.Dependencies{
		Config:          cfg,
		OrchestratorApp: app,
	}

	// 启动后台组件（冷启动恢复+定期清理）
	manager.MustInitComponents(deps)
	defer manager.Shutdown()

	engine := buildEngine(cfg, deps)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if serr := srv.ListenAndServe(); serr != nil && serr != http.ErrServerClosed {
			logger.Fatal("HTTP server failed: " + serr.Error())
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Errorf("HTTP server shutdown error=%v", serr)
	}
}

func buildEngine(cfg *config.Config, deps *manager.Dependencies) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestContextMiddleware())

	engine.GET("/health", func(ctx *gin.Context) {
		restapi.Success(ctx, gin.H{"status": "ok"})
	})

	manager.RegisterAllRoutes(engine, deps)
	return engine
}

// resolveConfigPath 按CONFIG_PATH或CONFIG_ENV定位配置文件
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return fmt.Sprintf("config/config-%s.yaml", env)
}
