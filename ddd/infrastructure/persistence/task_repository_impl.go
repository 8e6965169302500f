package persistence

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"transcode-orchestrator/ddd/domain/entity"
	"transcode-orchestrator/ddd/domain/repo"
	"transcode-orchestrator/ddd/domain/vo"
	"transcode-orchestrator/pkg/logger"
)

// taskRepositoryImpl 内存态+整表写回的任务仓储。
// 所有变更持有仓储锁，落盘成功前不返回，保证崩溃最多丢一次更新。
type taskRepositoryImpl struct {
	backend Backend
	mu      sync.Mutex
	tasks   map[string]*taskRecord
}

// NewTaskRepository 创建仓储并整表加载存量任务
func NewTaskRepository(ctx context.Context, backend Backend) (repo.TaskRepository, error) {
	r := &taskRepositoryImpl{
		backend: backend,
		tasks:   make(map[string]*taskRecord),
	}
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *taskRepositoryImpl) load(ctx context.Context) error {
	data, err := r.backend.Load(ctx)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var records []*taskRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	for _, rec := range records {
		r.tasks[rec.ID] = rec
	}
	logger.Infof("Task store loaded tasks=%d", len(records))
	return nil
}

// persist 整表写回；调用方必须持有锁
func (r *taskRepositoryImpl) persist(ctx context.Context) error {
	records := make([]*taskRecord, 0, len(r.tasks))
	for _, rec := range r.tasks {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt < records[j].CreatedAt
	})
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return r.backend.Save(ctx, data)
}

func (r *taskRepositoryImpl) Register(ctx context.Context, draftID, title string) (*entity.TaskEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 幂等：同一draft已有任务时返回既有任务
	for _, rec := range r.tasks {
		if rec.DraftID == draftID {
			return fromRecord(rec), nil
		}
	}

	task := entity.NewTaskEntity(draftID, title)
	r.tasks[task.ID()] = toRecord(task)
	if err := r.persist(ctx); err != nil {
		delete(r.tasks, task.ID())
		return nil, err
	}
	return task, nil
}

func (r *taskRepositoryImpl) Update(ctx context.Context, taskID string, mutate func(*entity.TaskEntity) error) (*entity.TaskEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tasks[taskID]
	if !ok {
		return nil, nil
	}
	task := fromRecord(rec)
	if err := mutate(task); err != nil {
		return nil, err
	}
	r.tasks[taskID] = toRecord(task)
	if err := r.persist(ctx); err != nil {
		r.tasks[taskID] = rec
		return nil, err
	}
	return task, nil
}

func (r *taskRepositoryImpl) Get(_ context.Context, taskID string) (*entity.TaskEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tasks[taskID]
	if !ok {
		return nil, nil
	}
	return fromRecord(rec), nil
}

func (r *taskRepositoryImpl) Remove(ctx context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[taskID]; !ok {
		return nil
	}
	delete(r.tasks, taskID)
	return r.persist(ctx)
}

func (r *taskRepositoryImpl) ListAll(_ context.Context) ([]*entity.TaskEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.TaskEntity, 0, len(r.tasks))
	for _, rec := range r.tasks {
		out = append(out, fromRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out, nil
}

func (r *taskRepositoryImpl) ListResumable(_ context.Context) ([]*entity.TaskEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.TaskEntity
	for _, rec := range r.tasks {
		task := fromRecord(rec)
		if task.Status().IsResumable() {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out, nil
}

func (r *taskRepositoryImpl) SweepCompleted(ctx context.Context, maxAge time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxAge).UnixMilli()
	removed := 0
	for id, rec := range r.tasks {
		status := vo.TaskStatus(rec.Status)
		if (status == vo.TaskStatusComplete || status == vo.TaskStatusCancelled) && rec.UpdatedAt < cutoff {
			delete(r.tasks, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := r.persist(ctx); err != nil {
		return 0, err
	}
	logger.Infof("Swept old tasks removed=%d", removed)
	return removed, nil
}
