package entity

import (
	"time"

	"github.com/google/uuid"

	"transcode-orchestrator/ddd/domain/vo"
)

// TaskEntity 一次用户发起的转码请求实体。
// 状态只能通过实体方法变更；到达complete/cancelled后TranscodeState
// 被冻结，error态任务可以由用户重新发起转码。
type TaskEntity struct {
	id          string
	draftID     string
	title       string
	status      vo.TaskStatus
	taskErr     *vo.TaskError
	transcode   *vo.TranscodeState
	createdAt   time.Time
	updatedAt   time.Time
	completedAt *time.Time
}

// NewTaskEntity 创建任务实体（自动生成ID）
func NewTaskEntity(draftID, title string) *TaskEntity {
	now := time.Now()
	return &TaskEntity{
		id:        uuid.New().String(),
		draftID:   draftID,
		title:     title,
		status:    vo.TaskStatusPending,
		createdAt: now,
		updatedAt: now,
	}
}

// RehydrateTaskEntity 从持久化记录还原实体
func RehydrateTaskEntity(
	id, draftID, title string,
	status vo.TaskStatus,
	taskErr *vo.TaskError,
	transcode *vo.TranscodeState,
	createdAt, updatedAt time.Time,
	completedAt *time.Time,
) *TaskEntity {
	return &TaskEntity{
		id:          id,
		draftID:     draftID,
		title:       title,
		status:      status,
		taskErr:     taskErr,
		transcode:   transcode,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		completedAt: completedAt,
	}
}

func (t *TaskEntity) ID() string                     { return t.id }
func (t *TaskEntity) DraftID() string                { return t.draftID }
func (t *TaskEntity) Title() string                  { return t.title }
func (t *TaskEntity) Status() vo.TaskStatus          { return t.status }
func (t *TaskEntity) Err() *vo.TaskError             { return t.taskErr }
func (t *TaskEntity) Transcode() *vo.TranscodeState  { return t.transcode }
func (t *TaskEntity) CreatedAt() time.Time           { return t.createdAt }
func (t *TaskEntity) UpdatedAt() time.Time           { return t.updatedAt }
func (t *TaskEntity) CompletedAt() *time.Time        { return t.completedAt }
func (t *TaskEntity) IsTerminal() bool               { return t.status.IsTerminal() }

func (t *TaskEntity) touch() {
	t.updatedAt = time.Now()
}

// SetStatus 更新任务状态；冻结态任务不再接受变更
func (t *TaskEntity) SetStatus(status vo.TaskStatus) {
	if t.status.IsFrozen() {
		return
	}
	t.status = status
	t.touch()
}

// BeginTranscode 挂上转码子记录并进入transcoding状态。
// error态任务允许重新开始（用户手动重试，队列从头跑），
// complete/cancelled保持冻结
func (t *TaskEntity) BeginTranscode(state *vo.TranscodeState) {
	if t.status.IsFrozen() {
		return
	}
	t.transcode = state
	t.status = vo.TaskStatusTranscoding
	t.taskErr = nil
	t.touch()
}

// RetryTranscode 失败任务重新进入transcoding，保留既有转码记录：
// 已完成的清晰度不重做，在途requestID留给恢复路径接住
func (t *TaskEntity) RetryTranscode() {
	if t.status != vo.TaskStatusError || t.transcode == nil {
		return
	}
	t.status = vo.TaskStatusTranscoding
	t.taskErr = nil
	t.touch()
}

// MutateTranscode 在非冻结态下修改转码子记录
func (t *TaskEntity) MutateTranscode(fn func(*vo.TranscodeState)) {
	if t.status.IsFrozen() || t.transcode == nil {
		return
	}
	fn(t.transcode)
	t.touch()
}

// MarkComplete 标记任务完成
func (t *TaskEntity) MarkComplete() {
	if t.status.IsFrozen() {
		return
	}
	now := time.Now()
	t.status = vo.TaskStatusComplete
	t.completedAt = &now
	t.updatedAt = now
}

// MarkFailed 标记任务失败；error态允许覆盖失败原因
func (t *TaskEntity) MarkFailed(message string, retryable bool) {
	if t.status.IsFrozen() {
		return
	}
	t.status = vo.TaskStatusError
	t.taskErr = &vo.TaskError{Message: message, Retryable: retryable}
	t.touch()
}

// MarkCancelled 静默取消，不产生错误信息
func (t *TaskEntity) MarkCancelled() {
	if t.status.IsFrozen() {
		return
	}
	if t.transcode != nil {
		t.transcode.ClearInFlight()
	}
	t.status = vo.TaskStatusCancelled
	t.touch()
}
