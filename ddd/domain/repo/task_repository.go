package repo

import (
	"context"
	"time"

	"transcode-orchestrator/ddd/domain/entity"
)

// TaskRepository 任务持久化仓储。
// 实现必须保证：同一任务的Update是原子的读-改-写；
// 写入在方法返回前落盘，崩溃最多丢失一次未完成的更新。
type TaskRepository interface {
	// Register 幂等注册：同一draftID已有任务时返回既有任务
	Register(ctx context.Context, draftID, title string) (*entity.TaskEntity, error)

	// Update 原子修改一个任务并持久化，返回修改后的实体
	Update(ctx context.Context, taskID string, mutate func(*entity.TaskEntity) error) (*entity.TaskEntity, error)

	// Get 按ID查询，未找到时返回(nil, nil)
	Get(ctx context.Context, taskID string) (*entity.TaskEntity, error)

	// Remove 删除任务
	Remove(ctx context.Context, taskID string) error

	// ListAll 返回全部任务
	ListAll(ctx context.Context) ([]*entity.TaskEntity, error)

	// ListResumable 返回冷启动后需要恢复的任务
	ListResumable(ctx context.Context) ([]*entity.TaskEntity, error)

	// SweepCompleted 清理更新时间早于maxAge的已完成/已取消任务，返回清理数量
	SweepCompleted(ctx context.Context, maxAge time.Duration) (int, error)
}
