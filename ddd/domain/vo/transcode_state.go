package vo

import "time"

// TranscodeState 转码进行中的子记录，随Task持久化。
// ResolutionQueue一经设置不可变；CompletedQualities只追加，
// 顺序必须是ResolutionQueue的前缀（严格按队列顺序处理）。
type TranscodeState struct {
	Phase                   TranscodePhase `json:"phase"`
	WorkerID                string         `json:"worker_id,omitempty"`
	InputURL                string         `json:"input_url"`
	OriginalDurationSeconds float64        `json:"original_duration_seconds,omitempty"`
	RequestID               string         `json:"request_id,omitempty"`
	ResolutionQueue         []Quality      `json:"resolution_queue"`
	CurrentQuality          Quality        `json:"current_quality,omitempty"`
	CompletedQualities      []Quality      `json:"completed_qualities,omitempty"`
	CompletedArtifacts      []Artifact     `json:"completed_artifacts,omitempty"`
	Message                 string         `json:"message,omitempty"`
	Percentage              float64        `json:"percentage,omitempty"`
	EtaSeconds              float64        `json:"eta_seconds,omitempty"`
	StartedAt               int64          `json:"started_at"` // epoch毫秒，用于恢复过期判断
}

// NewTranscodeState 开始转码时创建子记录
func NewTranscodeState(inputURL string, queue []Quality, duration float64) *TranscodeState {
	q := make([]Quality, len(queue))
	copy(q, queue)
	return &TranscodeState{
		Phase:                   PhaseDiscovering,
		InputURL:                inputURL,
		OriginalDurationSeconds: duration,
		ResolutionQueue:         q,
		StartedAt:               time.Now().UnixMilli(),
	}
}

// IsCompleted 检查某清晰度是否已完成
func (s *TranscodeState) IsCompleted(q Quality) bool {
	for _, done := range s.CompletedQualities {
		if done == q {
			return true
		}
	}
	return false
}

// Remaining 返回队列中尚未完成的清晰度，保持队列顺序
func (s *TranscodeState) Remaining() []Quality {
	var rest []Quality
	for _, q := range s.ResolutionQueue {
		if !s.IsCompleted(q) {
			rest = append(rest, q)
		}
	}
	return rest
}

// AppendCompleted 追加一个完成的清晰度及其成品，并清空在途字段
func (s *TranscodeState) AppendCompleted(q Quality, artifact Artifact) {
	s.CompletedQualities = append(s.CompletedQualities, q)
	s.CompletedArtifacts = append(s.CompletedArtifacts, artifact)
	s.CurrentQuality = ""
	s.RequestID = ""
	s.Message = ""
	s.Percentage = 0
	s.EtaSeconds = 0
}

// ApplyProgress 记录worker反馈的进度
func (s *TranscodeState) ApplyProgress(p JobProgress) {
	if p.Message != "" {
		s.Message = p.Message
	}
	if p.Percentage > 0 {
		s.Percentage = p.Percentage
	}
	if p.EtaSeconds > 0 {
		s.EtaSeconds = p.EtaSeconds
	}
}

// ClearInFlight 取消时清空在途字段
func (s *TranscodeState) ClearInFlight() {
	s.CurrentQuality = ""
	s.RequestID = ""
	s.Message = ""
	s.Percentage = 0
	s.EtaSeconds = 0
}

// AgeSince 计算子记录从创建到now经过的时长
func (s *TranscodeState) AgeSince(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.StartedAt))
}
