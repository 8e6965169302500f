package app

import (
	"context"
	"sync"

	"transcode-orchestrator/ddd/application/cqe"
	"transcode-orchestrator/ddd/application/dto"
	"transcode-orchestrator/ddd/domain/gateway"
	"transcode-orchestrator/ddd/domain/repo"
	"transcode-orchestrator/ddd/domain/service"
	"transcode-orchestrator/ddd/infrastructure/identity"
	"transcode-orchestrator/ddd/infrastructure/mirror"
	"transcode-orchestrator/ddd/infrastructure/notify"
	"transcode-orchestrator/ddd/infrastructure/persistence"
	"transcode-orchestrator/ddd/infrastructure/relay"
	"transcode-orchestrator/internal/resource"
	"transcode-orchestrator/pkg/assert"
	"transcode-orchestrator/pkg/config"
	"transcode-orchestrator/pkg/errno"
	"transcode-orchestrator/pkg/logger"
)

var (
	orchestratorAppOnce sync.Once
	orchestratorAppImpl *OrchestratorApp
)

// OrchestratorApp 转码编排应用服务：对外暴露注册/启动/取消/查询，
// 内部把阻塞的编排流水线放进goroutine执行。
type OrchestratorApp struct {
	cfg          *config.Config
	taskRepo     repo.TaskRepository
	relayPool    *relay.Pool
	orchestrator service.Orchestrator
}

// DefaultOrchestratorApp 返回全局应用服务单例
func DefaultOrchestratorApp() *OrchestratorApp {
	assert.NotCircular()
	orchestratorAppOnce.Do(func() {
		var err error
		orchestratorAppImpl, err = NewOrchestratorApp(config.GetGlobalConfig())
		if err != nil {
			panic("failed to init orchestrator app: " + err.Error())
		}
	})
	assert.NotNil(orchestratorAppImpl)
	return orchestratorAppImpl
}

// NewOrchestratorApp 按配置装配领域服务和基础设施
func NewOrchestratorApp(cfg *config.Config) (*OrchestratorApp, error) {
	if cfg == nil {
		return nil, errno.ErrInternalServer.WithMessage("config is nil")
	}

	var backend persistence.Backend
	switch cfg.Store.Backend {
	case "redis":
		client := resource.DefaultRedisResource().Client()
		if client == nil {
			return nil, errno.ErrStorage.WithMessage("redis store backend selected but redis resource not opened")
		}
		backend = persistence.NewRedisBackend(client, cfg.Store.RedisKey)
	default:
		fb, err := persistence.NewFileBackend(cfg.Store.FilePath)
		if err != nil {
			return nil, errno.NewBizError(errno.ErrStorage, err)
		}
		backend = fb
	}

	taskRepo, err := persistence.NewTaskRepository(context.Background(), backend)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrStorage, err)
	}

	signer, err := identity.NewLocalSigner(cfg.Identity)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrIdentityUnavailable, err)
	}

	pool := relay.NewPool(cfg.Relay.ConnectTimeout)
	directory := service.NewWorkerDirectory(pool, cfg.Relay.ReadRelays, cfg.Relay.DiscoveryTimeout)
	jobClient := service.NewJobClient(
		pool, signer,
		cfg.Relay.ReadRelays, cfg.Relay.WriteRelays,
		cfg.Relay.ResultTimeout, cfg.Relay.LookupTimeout,
	)

	orchestrator := service.NewOrchestrator(
		taskRepo,
		directory,
		jobClient,
		buildMirror(cfg, signer),
		buildReporter(cfg),
		cfg.Orchestrator.ResumeExpiry,
	)

	return &OrchestratorApp{
		cfg:          cfg,
		taskRepo:     taskRepo,
		relayPool:    pool,
		orchestrator: orchestrator,
	}, nil
}

func buildMirror(cfg *config.Config, signer gateway.Signer) gateway.MirrorGateway {
	if !cfg.Mirror.Enabled {
		return nil
	}
	switch cfg.Mirror.Mode {
	case "minio":
		return mirror.NewMinioMirror(
			resource.DefaultMinioResource(),
			cfg.Minio.PublicBase,
			cfg.Mirror.MaxBytes,
			cfg.Mirror.Timeout,
		)
	default:
		return mirror.NewBlossomMirror(cfg.Mirror.Servers, signer, cfg.Mirror.Timeout)
	}
}

func buildReporter(cfg *config.Config) gateway.ResultReporter {
	if !cfg.Kafka.Enabled {
		return nil
	}
	client := resource.DefaultKafkaResource().Client()
	if client == nil {
		logger.Warnf("Kafka reporter disabled, producer not opened")
		return nil
	}
	return notify.NewKafkaReporter(client, cfg.Kafka.Topics.ArtifactEvents, cfg.Kafka.Topics.TaskEvents)
}

// Register 幂等注册任务：同一draftID返回既有任务
func (a *OrchestratorApp) Register(ctx context.Context, req *cqe.RegisterTaskReq) (*dto.TaskDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	task, err := a.taskRepo.Register(ctx, req.DraftID, req.Title)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrStorage, err)
	}
	return dto.FromTaskEntity(task, a.orchestrator.HasActiveJob(task.ID())), nil
}

// StartTranscode 启动转码：校验后把流水线放入goroutine，立即返回当前视图。
// 重复启动是无操作，由编排器的Job仲裁表保证。
func (a *OrchestratorApp) StartTranscode(ctx context.Context, req *cqe.StartTranscodeReq) (*dto.TaskDTO, error) {
	qualities, err := req.Validate()
	if err != nil {
		return nil, err
	}

	task, err := a.taskRepo.Get(ctx, req.TaskID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrStorage, err)
	}
	if task == nil {
		return nil, errno.ErrTaskNotFound
	}

	cmd := service.StartCommand{
		TaskID:          req.TaskID,
		InputURL:        req.InputURL,
		Qualities:       qualities,
		DurationSeconds: req.DurationSeconds,
	}

	// 流水线生命周期独立于HTTP请求，使用长生命周期上下文
	go func() {
		if serr := a.orchestrator.Start(context.Background(), cmd, service.Callbacks{}); serr != nil {
			logger.Warnf("Transcode pipeline ended with error task_id=%s error=%v", req.TaskID, serr)
		}
	}()

	return dto.FromTaskEntity(task, true), nil
}

// ResumeTask 用户侧恢复/重试单个任务：中断的任务接着跑，
// 失败的任务清掉错误重试，流水线同样放入goroutine
func (a *OrchestratorApp) ResumeTask(ctx context.Context, taskID string) (*dto.TaskDTO, error) {
	if taskID == "" {
		return nil, errno.ErrMissingParam
	}
	task, err := a.taskRepo.Get(ctx, taskID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrStorage, err)
	}
	if task == nil {
		return nil, errno.ErrTaskNotFound
	}

	go func() {
		if rerr := a.orchestrator.Resume(context.Background(), taskID, service.Callbacks{}); rerr != nil {
			logger.Warnf("Resume ended with error task_id=%s error=%v", taskID, rerr)
		}
	}()

	return dto.FromTaskEntity(task, true), nil
}

// ResumeAll 冷启动恢复：扫描可恢复任务并逐一放入goroutine
func (a *OrchestratorApp) ResumeAll(ctx context.Context) (int, error) {
	tasks, err := a.taskRepo.ListResumable(ctx)
	if err != nil {
		return 0, errno.NewBizError(errno.ErrStorage, err)
	}
	for _, task := range tasks {
		taskID := task.ID()
		go func() {
			if rerr := a.orchestrator.Resume(context.Background(), taskID, service.Callbacks{}); rerr != nil {
				logger.Warnf("Resume ended with error task_id=%s error=%v", taskID, rerr)
			}
		}()
	}
	if len(tasks) > 0 {
		logger.Infof("Resuming interrupted transcode tasks count=%d", len(tasks))
	}
	return len(tasks), nil
}

// Cancel 协作式取消：通知活动Job并把任务置为cancelled
func (a *OrchestratorApp) Cancel(ctx context.Context, req *cqe.CancelTaskReq) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return a.orchestrator.Cancel(ctx, req.TaskID)
}

// GetTask 查询单个任务
func (a *OrchestratorApp) GetTask(ctx context.Context, taskID string) (*dto.TaskDTO, error) {
	task, err := a.taskRepo.Get(ctx, taskID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrStorage, err)
	}
	if task == nil {
		return nil, errno.ErrTaskNotFound
	}
	return dto.FromTaskEntity(task, a.orchestrator.HasActiveJob(taskID)), nil
}

// ListTasks 查询全部任务
func (a *OrchestratorApp) ListTasks(ctx context.Context) ([]*dto.TaskDTO, error) {
	tasks, err := a.taskRepo.ListAll(ctx)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrStorage, err)
	}
	out := make([]*dto.TaskDTO, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, dto.FromTaskEntity(task, a.orchestrator.HasActiveJob(task.ID())))
	}
	return out, nil
}

// RemoveTask 删除任务记录；有活动Job时先取消
func (a *OrchestratorApp) RemoveTask(ctx context.Context, taskID string) error {
	if a.orchestrator.HasActiveJob(taskID) {
		if err := a.orchestrator.Cancel(ctx, taskID); err != nil {
			return err
		}
	}
	if err := a.taskRepo.Remove(ctx, taskID); err != nil {
		return errno.NewBizError(errno.ErrStorage, err)
	}
	return nil
}

// SweepCompleted 清理过期的终态任务
func (a *OrchestratorApp) SweepCompleted(ctx context.Context) (int, error) {
	return a.taskRepo.SweepCompleted(ctx, a.cfg.Orchestrator.CompletedMaxAge)
}

// Close 释放relay连接
func (a *OrchestratorApp) Close() {
	if a.relayPool != nil {
		a.relayPool.Close()
	}
}
