package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcode-orchestrator/ddd/domain/entity"
	"transcode-orchestrator/ddd/domain/repo"
	"transcode-orchestrator/ddd/domain/vo"
)

func newFileRepo(t *testing.T, path string) repo.TaskRepository {
	t.Helper()
	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	r, err := NewTaskRepository(context.Background(), backend)
	require.NoError(t, err)
	return r
}

func TestTaskRepository_RegisterIsIdempotent(t *testing.T) {
	r := newFileRepo(t, filepath.Join(t.TempDir(), "tasks.json"))

	first, err := r.Register(context.Background(), "draft-1", "video")
	require.NoError(t, err)

	second, err := r.Register(context.Background(), "draft-1", "another title")
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())

	other, err := r.Register(context.Background(), "draft-2", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), other.ID())

	all, err := r.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTaskRepository_UpdatePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	r := newFileRepo(t, path)

	task, err := r.Register(context.Background(), "draft-1", "video")
	require.NoError(t, err)

	_, err = r.Update(context.Background(), task.ID(), func(tk *entity.TaskEntity) error {
		tk.BeginTranscode(vo.NewTranscodeState("https://origin/in.mov",
			[]vo.Quality{vo.Quality480p, vo.Quality720p}, 90))
		tk.MutateTranscode(func(s *vo.TranscodeState) {
			s.WorkerID = "worker-pub"
			s.AppendCompleted(vo.Quality480p, vo.Artifact{URL: "https://cdn/480.mp4", QualityLabel: "480p"})
		})
		return nil
	})
	require.NoError(t, err)

	// 模拟进程重启：从同一文件重新加载
	reloaded := newFileRepo(t, path)
	got, err := reloaded.Get(context.Background(), task.ID())
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, vo.TaskStatusTranscoding, got.Status())
	require.NotNil(t, got.Transcode())
	assert.Equal(t, "worker-pub", got.Transcode().WorkerID)
	assert.Equal(t, []vo.Quality{vo.Quality480p}, got.Transcode().CompletedQualities)
	require.Len(t, got.Transcode().CompletedArtifacts, 1)
	assert.Equal(t, "https://cdn/480.mp4", got.Transcode().CompletedArtifacts[0].URL)
}

func TestTaskRepository_GetMissingReturnsNil(t *testing.T) {
	r := newFileRepo(t, filepath.Join(t.TempDir(), "tasks.json"))

	got, err := r.Get(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)

	updated, err := r.Update(context.Background(), "no-such-id", func(tk *entity.TaskEntity) error {
		tk.MarkComplete()
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestTaskRepository_Remove(t *testing.T) {
	r := newFileRepo(t, filepath.Join(t.TempDir(), "tasks.json"))

	task, err := r.Register(context.Background(), "draft-1", "")
	require.NoError(t, err)

	require.NoError(t, r.Remove(context.Background(), task.ID()))
	got, err := r.Get(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Nil(t, got)

	// 删除不存在的任务不报错
	assert.NoError(t, r.Remove(context.Background(), task.ID()))
}

func TestTaskRepository_ListResumable(t *testing.T) {
	r := newFileRepo(t, filepath.Join(t.TempDir(), "tasks.json"))

	running, err := r.Register(context.Background(), "draft-running", "")
	require.NoError(t, err)
	_, err = r.Update(context.Background(), running.ID(), func(tk *entity.TaskEntity) error {
		tk.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality480p}, 0))
		return nil
	})
	require.NoError(t, err)

	finished, err := r.Register(context.Background(), "draft-finished", "")
	require.NoError(t, err)
	_, err = r.Update(context.Background(), finished.ID(), func(tk *entity.TaskEntity) error {
		tk.MarkComplete()
		return nil
	})
	require.NoError(t, err)

	failed, err := r.Register(context.Background(), "draft-failed", "")
	require.NoError(t, err)
	_, err = r.Update(context.Background(), failed.ID(), func(tk *entity.TaskEntity) error {
		tk.MarkFailed("boom", true)
		return nil
	})
	require.NoError(t, err)

	resumable, err := r.ListResumable(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(resumable))
	for _, task := range resumable {
		ids = append(ids, task.DraftID())
	}
	assert.Contains(t, ids, "draft-running")
	assert.NotContains(t, ids, "draft-finished")
	assert.NotContains(t, ids, "draft-failed")
}

func TestTaskRepository_SweepCompleted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	r := newFileRepo(t, path)

	old, err := r.Register(context.Background(), "draft-old", "")
	require.NoError(t, err)
	_, err = r.Update(context.Background(), old.ID(), func(tk *entity.TaskEntity) error {
		tk.MarkComplete()
		return nil
	})
	require.NoError(t, err)

	fresh, err := r.Register(context.Background(), "draft-fresh", "")
	require.NoError(t, err)
	_, err = r.Update(context.Background(), fresh.ID(), func(tk *entity.TaskEntity) error {
		tk.MarkComplete()
		return nil
	})
	require.NoError(t, err)

	running, err := r.Register(context.Background(), "draft-running", "")
	require.NoError(t, err)
	_, err = r.Update(context.Background(), running.ID(), func(tk *entity.TaskEntity) error {
		tk.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality480p}, 0))
		return nil
	})
	require.NoError(t, err)

	// 手动把old的更新时间拨回8天前
	backdate(t, path, old.ID(), 8*24*time.Hour)
	reloaded := newFileRepo(t, path)

	removed, err := reloaded.SweepCompleted(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	gone, err := reloaded.Get(context.Background(), old.ID())
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := reloaded.Get(context.Background(), fresh.ID())
	require.NoError(t, err)
	assert.NotNil(t, kept)

	stillRunning, err := reloaded.Get(context.Background(), running.ID())
	require.NoError(t, err)
	assert.NotNil(t, stillRunning)
}

func TestFileBackend_MissingFileIsEmpty(t *testing.T) {
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "nested", "tasks.json"))
	require.NoError(t, err)

	data, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFileBackend_SaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	backend, err := NewFileBackend(path)
	require.NoError(t, err)

	require.NoError(t, backend.Save(context.Background(), []byte(`[]`)))
	require.NoError(t, backend.Save(context.Background(), []byte(`[{"id":"t"}]`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"t"}]`, string(data))

	// 临时文件不应残留
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

// backdate 直接改写存储文件里的更新时间戳
func backdate(t *testing.T, path, taskID string, age time.Duration) {
	t.Helper()
	r := newFileRepo(t, path)
	impl, ok := r.(*taskRepositoryImpl)
	require.True(t, ok)

	impl.mu.Lock()
	rec, ok := impl.tasks[taskID]
	require.True(t, ok)
	rec.UpdatedAt = time.Now().Add(-age).UnixMilli()
	err := impl.persist(context.Background())
	impl.mu.Unlock()
	require.NoError(t, err)
}
