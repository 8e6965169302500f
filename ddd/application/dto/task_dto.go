package dto

import (
	"time"

	"transcode-orchestrator/ddd/domain/entity"
	"transcode-orchestrator/ddd/domain/vo"
)

// TaskDTO 任务对外视图
type TaskDTO struct {
	TaskID      string        `json:"task_id"`
	DraftID     string        `json:"draft_id"`
	Title       string        `json:"title,omitempty"`
	Status      string        `json:"status"`
	Error       *vo.TaskError `json:"error,omitempty"`
	Transcode   *TranscodeDTO `json:"transcode,omitempty"`
	HasLiveJob  bool          `json:"has_live_job"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// TranscodeDTO 转码子记录对外视图
type TranscodeDTO struct {
	Phase              string        `json:"phase"`
	WorkerID           string        `json:"worker_id,omitempty"`
	InputURL           string        `json:"input_url"`
	ResolutionQueue    []string      `json:"resolution_queue"`
	CurrentQuality     string        `json:"current_quality,omitempty"`
	CompletedQualities []string      `json:"completed_qualities"`
	CompletedArtifacts []vo.Artifact `json:"completed_artifacts"`
	Message            string        `json:"message,omitempty"`
	Percentage         float64       `json:"percentage,omitempty"`
	EtaSeconds         float64       `json:"eta_seconds,omitempty"`
}

// FromTaskEntity 实体转DTO
func FromTaskEntity(task *entity.TaskEntity, hasLiveJob bool) *TaskDTO {
	if task == nil {
		return nil
	}
	d := &TaskDTO{
		TaskID:      task.ID(),
		DraftID:     task.DraftID(),
		Title:       task.Title(),
		Status:      task.Status().String(),
		Error:       task.Err(),
		HasLiveJob:  hasLiveJob,
		CreatedAt:   task.CreatedAt(),
		UpdatedAt:   task.UpdatedAt(),
		CompletedAt: task.CompletedAt(),
	}
	if s := task.Transcode(); s != nil {
		d.Transcode = &TranscodeDTO{
			Phase:              s.Phase.String(),
			WorkerID:           s.WorkerID,
			InputURL:           s.InputURL,
			ResolutionQueue:    qualityStrings(s.ResolutionQueue),
			CurrentQuality:     s.CurrentQuality.String(),
			CompletedQualities: qualityStrings(s.CompletedQualities),
			CompletedArtifacts: append([]vo.Artifact{}, s.CompletedArtifacts...),
			Message:            s.Message,
			Percentage:         s.Percentage,
			EtaSeconds:         s.EtaSeconds,
		}
	}
	return d
}

func qualityStrings(qs []vo.Quality) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.String())
	}
	return out
}
