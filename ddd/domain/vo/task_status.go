package vo

// TaskStatus 转码任务状态
type TaskStatus string

const (
	// TaskStatusPending 待处理
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusUploading 源文件上传中
	TaskStatusUploading TaskStatus = "uploading"
	// TaskStatusTranscoding 远程转码中
	TaskStatusTranscoding TaskStatus = "transcoding"
	// TaskStatusMirroring 成品镜像中
	TaskStatusMirroring TaskStatus = "mirroring"
	// TaskStatusComplete 已完成
	TaskStatusComplete TaskStatus = "complete"
	// TaskStatusError 失败
	TaskStatusError TaskStatus = "error"
	// TaskStatusCancelled 已取消
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsValid 检查状态是否有效
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusUploading, TaskStatusTranscoding,
		TaskStatusMirroring, TaskStatusComplete, TaskStatusError, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// String 返回状态字符串
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal 检查是否为最终状态
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusComplete || s == TaskStatusError || s == TaskStatusCancelled
}

// IsFrozen 冻结态不再接受任何写入。
// 只有complete/cancelled冻结；error态保留重试入口
func (s TaskStatus) IsFrozen() bool {
	return s == TaskStatusComplete || s == TaskStatusCancelled
}

// IsResumable 冷启动后该状态的任务是否需要自动恢复。
// error不在其中：失败任务只接受用户手动重试，绝不自动重跑
func (s TaskStatus) IsResumable() bool {
	switch s {
	case TaskStatusPending, TaskStatusUploading, TaskStatusTranscoding, TaskStatusMirroring:
		return true
	default:
		return false
	}
}

// TranscodePhase 转码子状态
type TranscodePhase string

const (
	// PhaseDiscovering 正在查找worker
	PhaseDiscovering TranscodePhase = "discovering"
	// PhaseTranscoding 等待worker产出
	PhaseTranscoding TranscodePhase = "transcoding"
	// PhaseMirroring 正在镜像成品
	PhaseMirroring TranscodePhase = "mirroring"
)

func (p TranscodePhase) String() string {
	return string(p)
}

// TaskError 任务失败信息
type TaskError struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
