package gateway

import (
	"context"

	"transcode-orchestrator/ddd/domain/entity"
	"transcode-orchestrator/ddd/domain/vo"
)

// ResultReporter 向下游通知转码产出；实现为空时编排器静默跳过
type ResultReporter interface {
	// ReportArtifact 每个清晰度完成时通知一次
	ReportArtifact(ctx context.Context, task *entity.TaskEntity, artifact vo.Artifact) error

	// ReportTerminal 任务到达终态时通知一次
	ReportTerminal(ctx context.Context, task *entity.TaskEntity) error
}
