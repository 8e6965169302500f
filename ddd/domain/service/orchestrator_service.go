package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"transcode-orchestrator/ddd/domain/entity"
	"transcode-orchestrator/ddd/domain/gateway"
	"transcode-orchestrator/ddd/domain/repo"
	"transcode-orchestrator/ddd/domain/vo"
	"transcode-orchestrator/pkg/errno"
	"transcode-orchestrator/pkg/logger"
)

// Callbacks UI侧挂接的回调；回调不拥有Job，任务生命周期与UI无关
type Callbacks struct {
	OnEachArtifact func(taskID string, artifact vo.Artifact)
	OnAllDone      func(taskID string)
}

// StartCommand 启动一次转码的参数
type StartCommand struct {
	TaskID          string
	InputURL        string
	Qualities       []vo.Quality
	DurationSeconds float64
}

// Orchestrator 转码编排器：驱动任务按清晰度队列顺序走完
// 发现worker→提交作业→等待结果→镜像成品的流水线。
// Start/Resume阻塞到任务终态，调用方决定是否放入goroutine。
type Orchestrator interface {
	Start(ctx context.Context, cmd StartCommand, cb Callbacks) error
	Resume(ctx context.Context, taskID string, cb Callbacks) error
	Cancel(ctx context.Context, taskID string) error
	HasActiveJob(taskID string) bool
}

// runtimeJob 运行期Job句柄，从不持久化；每个任务同时最多一个
type runtimeJob struct {
	taskID string
	ctx    context.Context
	cancel context.CancelFunc
}

// jobRegistry 以任务ID为键的Job仲裁表。
// starting标记覆盖"决定启动"到"Job建立"之间的窗口，
// 防止用户触发的Start和自动Resume扫描同时进入。
type jobRegistry struct {
	mu       sync.Mutex
	jobs     map[string]*runtimeJob
	starting map[string]struct{}
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{
		jobs:     make(map[string]*runtimeJob),
		starting: make(map[string]struct{}),
	}
}

// tryBegin 占用启动窗口；已有Job或已在启动中时返回false
func (r *jobRegistry) tryBegin(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[taskID]; ok {
		return false
	}
	if _, ok := r.starting[taskID]; ok {
		return false
	}
	r.starting[taskID] = struct{}{}
	return true
}

// commit 用建立好的Job替换启动标记
func (r *jobRegistry) commit(j *runtimeJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.starting, j.taskID)
	r.jobs[j.taskID] = j
}

// release 释放启动标记或销毁Job
func (r *jobRegistry) release(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.starting, taskID)
	delete(r.jobs, taskID)
}

func (r *jobRegistry) get(taskID string) *runtimeJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[taskID]
}

func (r *jobRegistry) active(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[taskID]; ok {
		return true
	}
	_, ok := r.starting[taskID]
	return ok
}

type orchestratorImpl struct {
	taskRepo     repo.TaskRepository
	directory    WorkerDirectory
	jobClient    JobClient
	mirror       gateway.MirrorGateway
	reporter     gateway.ResultReporter
	resumeExpiry time.Duration
	jobs         *jobRegistry
}

// NewOrchestrator 创建编排器；mirror和reporter可以为nil
func NewOrchestrator(
	taskRepo repo.TaskRepository,
	directory WorkerDirectory,
	jobClient JobClient,
	mirror gateway.MirrorGateway,
	reporter gateway.ResultReporter,
	resumeExpiry time.Duration,
) Orchestrator {
	if resumeExpiry <= 0 {
		resumeExpiry = 12 * time.Hour
	}
	return &orchestratorImpl{
		taskRepo:     taskRepo,
		directory:    directory,
		jobClient:    jobClient,
		mirror:       mirror,
		reporter:     reporter,
		resumeExpiry: resumeExpiry,
		jobs:         newJobRegistry(),
	}
}

func (o *orchestratorImpl) HasActiveJob(taskID string) bool {
	return o.jobs.active(taskID)
}

func (o *orchestratorImpl) Start(ctx context.Context, cmd StartCommand, cb Callbacks) error {
	// 重复Start是无操作：既有Job的状态不受影响
	if !o.jobs.tryBegin(cmd.TaskID) {
		logger.Warnf("Start skipped, job already active task_id=%s", cmd.TaskID)
		return nil
	}

	if len(cmd.Qualities) == 0 {
		o.jobs.release(cmd.TaskID)
		return errno.ErrQualityRequired
	}
	if cmd.InputURL == "" {
		o.jobs.release(cmd.TaskID)
		return errno.ErrInputURLRequired
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &runtimeJob{taskID: cmd.TaskID, ctx: jobCtx, cancel: cancel}
	o.jobs.commit(job)
	defer func() {
		cancel()
		o.jobs.release(cmd.TaskID)
	}()

	task, err := o.taskRepo.Update(ctx, cmd.TaskID, func(t *entity.TaskEntity) error {
		t.BeginTranscode(vo.NewTranscodeState(cmd.InputURL, cmd.Qualities, cmd.DurationSeconds))
		return nil
	})
	if err != nil {
		return errno.NewBizError(errno.ErrStorage, err)
	}
	if task == nil {
		return errno.ErrTaskNotFound
	}

	return o.runPipeline(job, cb, false)
}

func (o *orchestratorImpl) Resume(ctx context.Context, taskID string, cb Callbacks) error {
	if !o.jobs.tryBegin(taskID) {
		logger.Warnf("Resume skipped, job already active task_id=%s", taskID)
		return nil
	}

	task, err := o.taskRepo.Get(ctx, taskID)
	if err != nil {
		o.jobs.release(taskID)
		return errno.NewBizError(errno.ErrStorage, err)
	}
	if task == nil {
		o.jobs.release(taskID)
		return errno.ErrTaskNotFound
	}
	// error态按用户手动重试处理；complete/cancelled无事可做
	retrying := task.Status() == vo.TaskStatusError
	if (!task.Status().IsResumable() && !retrying) || task.Transcode() == nil {
		o.jobs.release(taskID)
		logger.Debugf("Nothing to resume task_id=%s status=%s", taskID, task.Status())
		return nil
	}

	// 过期任务直接判死，不再联系worker或消息总线
	if task.Transcode().AgeSince(time.Now()) > o.resumeExpiry {
		_, _ = o.taskRepo.Update(ctx, taskID, func(t *entity.TaskEntity) error {
			t.MarkFailed(errno.ErrResumeExpired.Message, false)
			return nil
		})
		o.jobs.release(taskID)
		o.reportTerminal(ctx, taskID)
		return errno.ErrResumeExpired
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &runtimeJob{taskID: taskID, ctx: jobCtx, cancel: cancel}
	o.jobs.commit(job)
	defer func() {
		cancel()
		o.jobs.release(taskID)
	}()

	// 重试前清掉错误标记，已完成的清晰度保留
	if retrying {
		if _, uerr := o.taskRepo.Update(ctx, taskID, func(t *entity.TaskEntity) error {
			t.RetryTranscode()
			return nil
		}); uerr != nil {
			return errno.NewBizError(errno.ErrStorage, uerr)
		}
	}

	return o.runPipeline(job, cb, true)
}

func (o *orchestratorImpl) Cancel(ctx context.Context, taskID string) error {
	if j := o.jobs.get(taskID); j != nil {
		j.cancel()
	}
	// 无活动Job时也允许取消，只更新状态；终态任务不受影响
	_, err := o.taskRepo.Update(ctx, taskID, func(t *entity.TaskEntity) error {
		t.MarkCancelled()
		return nil
	})
	if err != nil {
		return errno.NewBizError(errno.ErrStorage, err)
	}
	return nil
}

// runPipeline 驱动任务走完剩余队列。resuming为真时先尝试接住
// 进程停止前在途的那次提交。
func (o *orchestratorImpl) runPipeline(job *runtimeJob, cb Callbacks, resuming bool) (err error) {
	taskID := job.taskID
	ctx := job.ctx

	// 清晰度循环里的未知异常按可重试错误收敛，不允许击穿编排器
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Pipeline panic task_id=%s panic=%v", taskID, r)
			err = o.failTask(taskID, fmt.Errorf("unexpected pipeline failure: %v", r))
		}
	}()

	task, err := o.taskRepo.Get(context.Background(), taskID)
	if err != nil {
		return errno.NewBizError(errno.ErrStorage, err)
	}
	if task == nil || task.Transcode() == nil {
		return errno.ErrTaskNotFound
	}
	state := task.Transcode()

	// 每个任务只做一次worker目录查询
	if state.WorkerID == "" {
		profile, derr := o.directory.FindWorker(ctx)
		if derr != nil {
			if errors.Is(derr, errno.ErrCancelled) || ctx.Err() != nil {
				return o.markCancelled(taskID)
			}
			return o.failTask(taskID, derr)
		}
		task, err = o.taskRepo.Update(context.Background(), taskID, func(t *entity.TaskEntity) error {
			t.MutateTranscode(func(s *vo.TranscodeState) {
				s.WorkerID = profile.WorkerID
				s.Phase = vo.PhaseTranscoding
			})
			return nil
		})
		if err != nil {
			return errno.NewBizError(errno.ErrStorage, err)
		}
		state = task.Transcode()
	}

	workerID := state.WorkerID
	inputURL := state.InputURL
	duration := state.OriginalDurationSeconds

	// 恢复路径：进程停止时有一次提交在途，先查存量结果，
	// 查不到再对同一requestID重新订阅，绝不重复提交。
	if resuming && state.RequestID != "" && state.CurrentQuality != "" {
		quality := state.CurrentQuality
		requestID := state.RequestID

		existing, _ := o.jobClient.QueryExistingResult(ctx, requestID, workerID, quality, duration)
		if existing != nil {
			if err := o.finishQuality(job, quality, *existing, cb); err != nil {
				return err
			}
		} else {
			if ctx.Err() != nil {
				return o.markCancelled(taskID)
			}
			artifact, aerr := o.jobClient.AwaitResult(ctx, requestID, workerID, quality, duration, o.progressSink(taskID))
			if aerr != nil {
				if errors.Is(aerr, errno.ErrCancelled) {
					return o.markCancelled(taskID)
				}
				return o.failTask(taskID, aerr)
			}
			if err := o.finishQuality(job, quality, artifact, cb); err != nil {
				return err
			}
		}
	}

	// 主循环：严格按队列顺序处理剩余清晰度，绝不并行
	for {
		task, err = o.taskRepo.Get(context.Background(), taskID)
		if err != nil {
			return errno.NewBizError(errno.ErrStorage, err)
		}
		if task == nil || task.IsTerminal() {
			return nil
		}
		remaining := task.Transcode().Remaining()
		if len(remaining) == 0 {
			break
		}
		quality := remaining[0]

		// 循环顶部检查取消句柄
		if ctx.Err() != nil {
			return o.markCancelled(taskID)
		}

		_, err = o.taskRepo.Update(context.Background(), taskID, func(t *entity.TaskEntity) error {
			t.MutateTranscode(func(s *vo.TranscodeState) {
				s.CurrentQuality = quality
				s.Phase = vo.PhaseTranscoding
			})
			return nil
		})
		if err != nil {
			return errno.NewBizError(errno.ErrStorage, err)
		}

		requestID, serr := o.jobClient.Submit(ctx, workerID, inputURL, quality)
		if serr != nil {
			// 已完成的清晰度保持记录，不回滚
			return o.failTask(taskID, serr)
		}
		_, err = o.taskRepo.Update(context.Background(), taskID, func(t *entity.TaskEntity) error {
			t.MutateTranscode(func(s *vo.TranscodeState) {
				s.RequestID = requestID
			})
			return nil
		})
		if err != nil {
			return errno.NewBizError(errno.ErrStorage, err)
		}

		// 提交后立刻复查取消：在途调用允许完成但结果被丢弃
		if ctx.Err() != nil {
			return o.markCancelled(taskID)
		}

		artifact, aerr := o.jobClient.AwaitResult(ctx, requestID, workerID, quality, duration, o.progressSink(taskID))
		if aerr != nil {
			if errors.Is(aerr, errno.ErrCancelled) {
				return o.markCancelled(taskID)
			}
			return o.failTask(taskID, aerr)
		}

		if err := o.finishQuality(job, quality, artifact, cb); err != nil {
			return err
		}
	}

	task, err = o.taskRepo.Update(context.Background(), taskID, func(t *entity.TaskEntity) error {
		t.MarkComplete()
		return nil
	})
	if err != nil {
		return errno.NewBizError(errno.ErrStorage, err)
	}
	logger.Info("Transcode task complete", map[string]interface{}{
		"task_id":   taskID,
		"qualities": len(task.Transcode().CompletedQualities),
	})
	o.reportTerminal(context.Background(), taskID)
	if cb.OnAllDone != nil {
		cb.OnAllDone(taskID)
	}
	return nil
}

// progressSink 把worker进度写回持久化状态
func (o *orchestratorImpl) progressSink(taskID string) func(vo.JobProgress) {
	return func(p vo.JobProgress) {
		_, _ = o.taskRepo.Update(context.Background(), taskID, func(t *entity.TaskEntity) error {
			t.MutateTranscode(func(s *vo.TranscodeState) {
				s.ApplyProgress(p)
			})
			return nil
		})
	}
}

// finishQuality 收尾一个清晰度：镜像成品（尽力而为）、追加完成记录、触发回调
func (o *orchestratorImpl) finishQuality(job *runtimeJob, quality vo.Quality, artifact vo.Artifact, cb Callbacks) error {
	taskID := job.taskID

	_, err := o.taskRepo.Update(context.Background(), taskID, func(t *entity.TaskEntity) error {
		t.MutateTranscode(func(s *vo.TranscodeState) {
			s.Phase = vo.PhaseMirroring
		})
		return nil
	})
	if err != nil {
		return errno.NewBizError(errno.ErrStorage, err)
	}

	// 镜像失败不致命：记日志，成品保留原始URL
	if o.mirror != nil {
		if mirrored, merr := o.mirror.Mirror(job.ctx, artifact.URL, "", artifact.SizeBytes); merr != nil {
			logger.Warn("Artifact mirror failed, keeping origin URL", map[string]interface{}{
				"task_id": taskID,
				"quality": quality.String(),
				"url":     artifact.URL,
				"error":   merr.Error(),
			})
		} else if mirrored != "" {
			artifact.URL = mirrored
		}
	}

	task, err := o.taskRepo.Update(context.Background(), taskID, func(t *entity.TaskEntity) error {
		t.MutateTranscode(func(s *vo.TranscodeState) {
			s.AppendCompleted(quality, artifact)
			s.Phase = vo.PhaseTranscoding
		})
		return nil
	})
	if err != nil {
		return errno.NewBizError(errno.ErrStorage, err)
	}

	logger.Info("Quality finished", map[string]interface{}{
		"task_id": taskID,
		"quality": quality.String(),
		"url":     artifact.URL,
	})

	if o.reporter != nil {
		if rerr := o.reporter.ReportArtifact(context.Background(), task, artifact); rerr != nil {
			logger.Warnf("Artifact report failed task_id=%s error=%v", taskID, rerr)
		}
	}
	if cb.OnEachArtifact != nil {
		cb.OnEachArtifact(taskID, artifact)
	}
	return nil
}

// failTask 将任务置为error终态并透传原错误
func (o *orchestratorImpl) failTask(taskID string, cause error) error {
	_, err := o.taskRepo.Update(context.Background(), taskID, func(t *entity.TaskEntity) error {
		t.MarkFailed(cause.Error(), errno.IsRetryable(cause))
		return nil
	})
	if err != nil {
		logger.Errorf("Failed to persist task failure task_id=%s error=%v", taskID, err)
	}
	logger.Error("Transcode task failed", map[string]interface{}{
		"task_id":   taskID,
		"error":     cause.Error(),
		"retryable": errno.IsRetryable(cause),
	})
	o.reportTerminal(context.Background(), taskID)
	return cause
}

// markCancelled 取消是静默的，不作为错误对外暴露
func (o *orchestratorImpl) markCancelled(taskID string) error {
	_, err := o.taskRepo.Update(context.Background(), taskID, func(t *entity.TaskEntity) error {
		t.MarkCancelled()
		return nil
	})
	if err != nil {
		logger.Errorf("Failed to persist cancellation task_id=%s error=%v", taskID, err)
	}
	o.reportTerminal(context.Background(), taskID)
	return nil
}

func (o *orchestratorImpl) reportTerminal(ctx context.Context, taskID string) {
	if o.reporter == nil {
		return
	}
	task, err := o.taskRepo.Get(ctx, taskID)
	if err != nil || task == nil {
		return
	}
	if rerr := o.reporter.ReportTerminal(ctx, task); rerr != nil {
		logger.Warnf("Terminal report failed task_id=%s error=%v", taskID, rerr)
	}
}
