package persistence

import (
	"time"

	"transcode-orchestrator/ddd/domain/entity"
	"transcode-orchestrator/ddd/domain/vo"
)

// taskRecord 任务的持久化对象，整表序列化为一个扁平列表
type taskRecord struct {
	ID          string             `json:"id"`
	DraftID     string             `json:"draft_id"`
	Title       string             `json:"title,omitempty"`
	Status      string             `json:"status"`
	Error       *vo.TaskError      `json:"error,omitempty"`
	Transcode   *vo.TranscodeState `json:"transcode,omitempty"`
	CreatedAt   int64              `json:"created_at"`
	UpdatedAt   int64              `json:"updated_at"`
	CompletedAt int64              `json:"completed_at,omitempty"`
}

func toRecord(t *entity.TaskEntity) *taskRecord {
	rec := &taskRecord{
		ID:        t.ID(),
		DraftID:   t.DraftID(),
		Title:     t.Title(),
		Status:    t.Status().String(),
		Error:     t.Err(),
		Transcode: t.Transcode(),
		CreatedAt: t.CreatedAt().UnixMilli(),
		UpdatedAt: t.UpdatedAt().UnixMilli(),
	}
	if t.CompletedAt() != nil {
		rec.CompletedAt = t.CompletedAt().UnixMilli()
	}
	return rec
}

func fromRecord(rec *taskRecord) *entity.TaskEntity {
	var completedAt *time.Time
	if rec.CompletedAt > 0 {
		ts := time.UnixMilli(rec.CompletedAt)
		completedAt = &ts
	}
	return entity.RehydrateTaskEntity(
		rec.ID,
		rec.DraftID,
		rec.Title,
		vo.TaskStatus(rec.Status),
		rec.Error,
		rec.Transcode,
		time.UnixMilli(rec.CreatedAt),
		time.UnixMilli(rec.UpdatedAt),
		completedAt,
	)
}
