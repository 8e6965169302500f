package http

import (
	"github.com/gin-gonic/gin"

	"transcode-orchestrator/ddd/application/app"
	"transcode-orchestrator/ddd/application/cqe"
	"transcode-orchestrator/pkg/errno"
	"transcode-orchestrator/pkg/restapi"
)

// TaskController 转码任务HTTP接口
type TaskController struct {
	app *app.OrchestratorApp
}

// NewTaskController 创建任务控制器
func NewTaskController(app *app.OrchestratorApp) *TaskController {
	return &TaskController{app: app}
}

// Register 注册任务
// POST /api/v1/tasks
func (c *TaskController) Register(ctx *gin.Context) {
	var req cqe.RegisterTaskReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	task, err := c.app.Register(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, task)
}

// Start 启动转码
// POST /api/v1/tasks/:task_id/start
func (c *TaskController) Start(ctx *gin.Context) {
	var req cqe.StartTranscodeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.NewBizError(errno.ErrInvalidParam, err))
		return
	}
	req.TaskID = ctx.Param("task_id")
	task, err := c.app.StartTranscode(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, task)
}

// Resume 恢复中断的任务，或对失败任务发起重试
// POST /api/v1/tasks/:task_id/resume
func (c *TaskController) Resume(ctx *gin.Context) {
	task, err := c.app.ResumeTask(ctx.Request.Context(), ctx.Param("task_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, task)
}

// Sweep 清理过期的终态任务，返回清理数量
// POST /api/v1/tasks/sweep
func (c *TaskController) Sweep(ctx *gin.Context) {
	removed, err := c.app.SweepCompleted(ctx.Request.Context())
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, gin.H{"removed": removed})
}

// Cancel 取消任务
// POST /api/v1/tasks/:task_id/cancel
func (c *TaskController) Cancel(ctx *gin.Context) {
	req := cqe.CancelTaskReq{TaskID: ctx.Param("task_id")}
	if err := c.app.Cancel(ctx.Request.Context(), &req); err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, nil)
}

// Get 查询单个任务
// GET /api/v1/tasks/:task_id
func (c *TaskController) Get(ctx *gin.Context) {
	task, err := c.app.GetTask(ctx.Request.Context(), ctx.Param("task_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, task)
}

// List 查询全部任务
// GET /api/v1/tasks
func (c *TaskController) List(ctx *gin.Context) {
	tasks, err := c.app.ListTasks(ctx.Request.Context())
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, tasks)
}

// Remove 删除任务
// DELETE /api/v1/tasks/:task_id
func (c *TaskController) Remove(ctx *gin.Context) {
	if err := c.app.RemoveTask(ctx.Request.Context(), ctx.Param("task_id")); err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, nil)
}
