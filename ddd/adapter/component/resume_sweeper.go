package component

import (
	"context"
	"time"

	"transcode-orchestrator/ddd/application/app"
	"transcode-orchestrator/pkg/logger"
	"transcode-orchestrator/pkg/manager"
)

func init() {
	manager.RegisterComponentPlugin(&ResumeSweeperPlugin{})
}

// ResumeSweeperPlugin 注册恢复与清理组件
type ResumeSweeperPlugin struct{}

// Name 组件插件名
func (p *ResumeSweeperPlugin) Name() string {
	return "resume-sweeper"
}

// MustCreateComponent 创建组件；恢复功能关闭时仍保留定期清理
func (p *ResumeSweeperPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	orchestratorApp, ok := deps.OrchestratorApp.(*app.OrchestratorApp)
	if !ok {
		panic("orchestrator app not injected")
	}
	return &ResumeSweeper{
		app:           orchestratorApp,
		resumeOnStart: deps.Config.Orchestrator.ResumeOnStart,
		sweepInterval: deps.Config.Orchestrator.SweepInterval,
		done:          make(chan struct{}),
	}
}

// ResumeSweeper 冷启动时恢复被中断的任务，之后定期清理过期终态任务
type ResumeSweeper struct {
	app           *app.OrchestratorApp
	resumeOnStart bool
	sweepInterval time.Duration
	done          chan struct{}
}

// Name 组件名
func (s *ResumeSweeper) Name() string {
	return "resume-sweeper"
}

// Start 先做一次冷启动恢复，再进入清理循环
func (s *ResumeSweeper) Start(ctx context.Context) error {
	if s.resumeOnStart {
		count, err := s.app.ResumeAll(ctx)
		if err != nil {
			logger.Errorf("Cold start resume failed error=%v", err)
		} else if count > 0 {
			logger.Infof("Cold start resume dispatched count=%d", count)
		}
	}

	go s.sweepLoop(ctx)
	return nil
}

// Stop 停止清理循环
func (s *ResumeSweeper) Stop() error {
	close(s.done)
	return nil
}

func (s *ResumeSweeper) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			count, err := s.app.SweepCompleted(ctx)
			if err != nil {
				logger.Warnf("Completed task sweep failed error=%v", err)
				continue
			}
			if count > 0 {
				logger.Infof("Swept completed tasks count=%d", count)
			}
		}
	}
}
