package cqe

import (
	"strings"

	"transcode-orchestrator/ddd/domain/vo"
	"transcode-orchestrator/pkg/errno"
)

// RegisterTaskReq 注册任务请求
type RegisterTaskReq struct {
	DraftID string `json:"draft_id" binding:"required"`
	Title   string `json:"title"`
}

// Validate 校验注册参数
func (r *RegisterTaskReq) Validate() error {
	if strings.TrimSpace(r.DraftID) == "" {
		return errno.ErrDraftIDRequired
	}
	return nil
}

// StartTranscodeReq 启动转码请求
type StartTranscodeReq struct {
	TaskID          string   `json:"task_id"`
	InputURL        string   `json:"input_url" binding:"required"`
	Qualities       []string `json:"qualities" binding:"required"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// Validate 校验启动参数并解析清晰度列表
func (r *StartTranscodeReq) Validate() ([]vo.Quality, error) {
	if strings.TrimSpace(r.TaskID) == "" {
		return nil, errno.ErrMissingParam.WithMessage("task_id is required")
	}
	if strings.TrimSpace(r.InputURL) == "" {
		return nil, errno.ErrInputURLRequired
	}
	if len(r.Qualities) == 0 {
		return nil, errno.ErrQualityRequired
	}
	qualities, err := vo.ParseQualities(r.Qualities)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrInvalidQuality, err)
	}
	return qualities, nil
}

// CancelTaskReq 取消任务请求
type CancelTaskReq struct {
	TaskID string `json:"task_id"`
}

// Validate 校验取消参数
func (r *CancelTaskReq) Validate() error {
	if strings.TrimSpace(r.TaskID) == "" {
		return errno.ErrMissingParam.WithMessage("task_id is required")
	}
	return nil
}
