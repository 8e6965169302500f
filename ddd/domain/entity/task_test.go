package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcode-orchestrator/ddd/domain/vo"
)

func TestNewTaskEntity(t *testing.T) {
	task := NewTaskEntity("draft-1", "My Video")
	assert.NotEmpty(t, task.ID())
	assert.Equal(t, "draft-1", task.DraftID())
	assert.Equal(t, vo.TaskStatusPending, task.Status())
	assert.False(t, task.IsTerminal())
	assert.Nil(t, task.Transcode())
}

func TestTaskEntity_BeginTranscode(t *testing.T) {
	task := NewTaskEntity("draft-1", "")
	task.BeginTranscode(vo.NewTranscodeState("https://origin/in.mov", []vo.Quality{vo.Quality480p}, 30))

	assert.Equal(t, vo.TaskStatusTranscoding, task.Status())
	require.NotNil(t, task.Transcode())
	assert.Equal(t, vo.PhaseDiscovering, task.Transcode().Phase)
}

func TestTaskEntity_TerminalFreeze(t *testing.T) {
	t.Run("completed task rejects further mutation", func(t *testing.T) {
		task := NewTaskEntity("draft-1", "")
		task.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality480p}, 0))
		task.MarkComplete()
		require.True(t, task.IsTerminal())

		task.SetStatus(vo.TaskStatusPending)
		task.MarkFailed("late failure", true)
		task.MutateTranscode(func(s *vo.TranscodeState) {
			s.AppendCompleted(vo.Quality480p, vo.Artifact{URL: "late"})
		})

		assert.Equal(t, vo.TaskStatusComplete, task.Status())
		assert.Nil(t, task.Err())
		assert.Empty(t, task.Transcode().CompletedArtifacts)
	})

	t.Run("cancelled task rejects late artifact append", func(t *testing.T) {
		task := NewTaskEntity("draft-2", "")
		task.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality480p, vo.Quality720p}, 0))
		task.MarkCancelled()

		task.MutateTranscode(func(s *vo.TranscodeState) {
			s.AppendCompleted(vo.Quality480p, vo.Artifact{URL: "in-flight"})
		})

		assert.Equal(t, vo.TaskStatusCancelled, task.Status())
		assert.Empty(t, task.Transcode().CompletedQualities)
	})
}

func TestTaskEntity_RetryAfterFailure(t *testing.T) {
	t.Run("failed task accepts a fresh BeginTranscode", func(t *testing.T) {
		task := NewTaskEntity("draft-1", "")
		task.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality480p}, 0))
		task.MarkFailed("publish failed", true)
		require.Equal(t, vo.TaskStatusError, task.Status())

		task.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality720p}, 0))

		assert.Equal(t, vo.TaskStatusTranscoding, task.Status())
		assert.Nil(t, task.Err())
		assert.Equal(t, []vo.Quality{vo.Quality720p}, task.Transcode().ResolutionQueue)
	})

	t.Run("RetryTranscode keeps completed prefix", func(t *testing.T) {
		task := NewTaskEntity("draft-1", "")
		task.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality480p, vo.Quality720p}, 0))
		task.MutateTranscode(func(s *vo.TranscodeState) {
			s.AppendCompleted(vo.Quality480p, vo.Artifact{URL: "https://cdn/480p.mp4"})
		})
		task.MarkFailed("no result before deadline", true)

		task.RetryTranscode()

		assert.Equal(t, vo.TaskStatusTranscoding, task.Status())
		assert.Nil(t, task.Err())
		assert.Equal(t, []vo.Quality{vo.Quality480p}, task.Transcode().CompletedQualities)
	})

	t.Run("RetryTranscode only acts on failed tasks", func(t *testing.T) {
		task := NewTaskEntity("draft-1", "")
		task.RetryTranscode()
		assert.Equal(t, vo.TaskStatusPending, task.Status())

		task.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality480p}, 0))
		task.MarkComplete()
		task.RetryTranscode()
		assert.Equal(t, vo.TaskStatusComplete, task.Status())
	})

	t.Run("cancelled task stays frozen", func(t *testing.T) {
		task := NewTaskEntity("draft-1", "")
		task.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality480p}, 0))
		task.MarkCancelled()

		task.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality720p}, 0))

		assert.Equal(t, vo.TaskStatusCancelled, task.Status())
		assert.Equal(t, []vo.Quality{vo.Quality480p}, task.Transcode().ResolutionQueue)
	})
}

func TestTaskEntity_MarkCancelledClearsInFlight(t *testing.T) {
	task := NewTaskEntity("draft-1", "")
	task.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality480p}, 0))
	task.MutateTranscode(func(s *vo.TranscodeState) {
		s.CurrentQuality = vo.Quality480p
		s.RequestID = "req-1"
	})

	task.MarkCancelled()

	assert.Empty(t, task.Transcode().CurrentQuality)
	assert.Empty(t, task.Transcode().RequestID)
	// 取消是静默的，没有错误信息
	assert.Nil(t, task.Err())
}

func TestTaskEntity_MarkFailed(t *testing.T) {
	task := NewTaskEntity("draft-1", "")
	task.MarkFailed("no worker found", true)

	assert.Equal(t, vo.TaskStatusError, task.Status())
	require.NotNil(t, task.Err())
	assert.Equal(t, "no worker found", task.Err().Message)
	assert.True(t, task.Err().Retryable)
}

func TestRehydrateTaskEntity(t *testing.T) {
	original := NewTaskEntity("draft-1", "title")
	original.BeginTranscode(vo.NewTranscodeState("u", []vo.Quality{vo.Quality720p}, 10))

	restored := RehydrateTaskEntity(
		original.ID(), original.DraftID(), original.Title(),
		original.Status(), original.Err(), original.Transcode(),
		original.CreatedAt(), original.UpdatedAt(), original.CompletedAt(),
	)

	assert.Equal(t, original.ID(), restored.ID())
	assert.Equal(t, original.Status(), restored.Status())
	assert.Equal(t, original.Transcode().InputURL, restored.Transcode().InputURL)
}
