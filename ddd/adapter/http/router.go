package http

import (
	"github.com/gin-gonic/gin"

	"transcode-orchestrator/ddd/application/app"
	"transcode-orchestrator/pkg/manager"
	"transcode-orchestrator/pkg/middleware"
)

func init() {
	manager.RegisterRoutes(registerTaskRoutes)
}

// registerTaskRoutes 挂载任务相关路由
func registerTaskRoutes(engine *gin.Engine, deps *manager.Dependencies) {
	orchestratorApp, ok := deps.OrchestratorApp.(*app.OrchestratorApp)
	if !ok {
		panic("orchestrator app not injected")
	}
	controller := NewTaskController(orchestratorApp)

	v1 := engine.Group("/api/v1")
	if deps.Config.JWT.Enabled {
		v1.Use(middleware.AuthMiddleware(deps.Config.JWT.Secret, deps.Config.JWT.Issuer))
	}

	tasks := v1.Group("/tasks")
	{
		tasks.POST("", controller.Register)
		tasks.GET("", controller.List)
		tasks.POST("/sweep", controller.Sweep)
		tasks.GET("/:task_id", controller.Get)
		tasks.DELETE("/:task_id", controller.Remove)
		tasks.POST("/:task_id/start", controller.Start)
		tasks.POST("/:task_id/cancel", controller.Cancel)
		tasks.POST("/:task_id/resume", controller.Resume)
	}
}
