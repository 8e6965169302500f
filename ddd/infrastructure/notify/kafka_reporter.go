package notify

import (
	"context"
	"encoding/json"

	"transcode-orchestrator/ddd/domain/entity"
	"transcode-orchestrator/ddd/domain/gateway"
	"transcode-orchestrator/ddd/domain/vo"
	"transcode-orchestrator/pkg/kafka"
)

// KafkaReporter 把转码产出投递到Kafka，供下游服务消费
type KafkaReporter struct {
	client        *kafka.Client
	artifactTopic string
	taskTopic     string
}

// NewKafkaReporter 创建Kafka结果上报器
func NewKafkaReporter(client *kafka.Client, artifactTopic, taskTopic string) *KafkaReporter {
	return &KafkaReporter{
		client:        client,
		artifactTopic: artifactTopic,
		taskTopic:     taskTopic,
	}
}

var _ gateway.ResultReporter = (*KafkaReporter)(nil)

type artifactMessage struct {
	TaskID   string      `json:"task_id"`
	DraftID  string      `json:"draft_id"`
	Artifact vo.Artifact `json:"artifact"`
}

type taskMessage struct {
	TaskID  string        `json:"task_id"`
	DraftID string        `json:"draft_id"`
	Status  string        `json:"status"`
	Error   *vo.TaskError `json:"error,omitempty"`
}

// ReportArtifact 每个清晰度完成时投递一条消息，按任务ID分区保序
func (r *KafkaReporter) ReportArtifact(ctx context.Context, task *entity.TaskEntity, artifact vo.Artifact) error {
	value, err := json.Marshal(artifactMessage{
		TaskID:   task.ID(),
		DraftID:  task.DraftID(),
		Artifact: artifact,
	})
	if err != nil {
		return err
	}
	return r.client.Produce(ctx, r.artifactTopic, []byte(task.ID()), value)
}

// ReportTerminal 任务到达终态时投递一条消息
func (r *KafkaReporter) ReportTerminal(ctx context.Context, task *entity.TaskEntity) error {
	value, err := json.Marshal(taskMessage{
		TaskID:  task.ID(),
		DraftID: task.DraftID(),
		Status:  task.Status().String(),
		Error:   task.Err(),
	})
	if err != nil {
		return err
	}
	return r.client.Produce(ctx, r.taskTopic, []byte(task.ID()), value)
}
