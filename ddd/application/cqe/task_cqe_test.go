package cqe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcode-orchestrator/ddd/domain/vo"
	"transcode-orchestrator/pkg/errno"
)

func TestRegisterTaskReq_Validate(t *testing.T) {
	req := &RegisterTaskReq{DraftID: "draft-1"}
	assert.NoError(t, req.Validate())

	req = &RegisterTaskReq{DraftID: "   "}
	assert.True(t, errors.Is(req.Validate(), errno.ErrDraftIDRequired))
}

func TestStartTranscodeReq_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := &StartTranscodeReq{
			TaskID:    "task-1",
			InputURL:  "https://origin/in.mov",
			Qualities: []string{"480p", "720p", "480p"},
		}
		qualities, err := req.Validate()
		require.NoError(t, err)
		assert.Equal(t, []vo.Quality{vo.Quality480p, vo.Quality720p}, qualities)
	})

	t.Run("missing task id", func(t *testing.T) {
		req := &StartTranscodeReq{InputURL: "https://origin/in.mov", Qualities: []string{"480p"}}
		_, err := req.Validate()
		assert.Error(t, err)
	})

	t.Run("missing input url", func(t *testing.T) {
		req := &StartTranscodeReq{TaskID: "task-1", Qualities: []string{"480p"}}
		_, err := req.Validate()
		assert.True(t, errors.Is(err, errno.ErrInputURLRequired))
	})

	t.Run("empty qualities", func(t *testing.T) {
		req := &StartTranscodeReq{TaskID: "task-1", InputURL: "https://origin/in.mov"}
		_, err := req.Validate()
		assert.True(t, errors.Is(err, errno.ErrQualityRequired))
	})

	t.Run("invalid quality", func(t *testing.T) {
		req := &StartTranscodeReq{TaskID: "task-1", InputURL: "https://origin/in.mov", Qualities: []string{"700p"}}
		_, err := req.Validate()
		assert.True(t, errors.Is(err, errno.ErrInvalidQuality))
	})
}

func TestCancelTaskReq_Validate(t *testing.T) {
	assert.NoError(t, (&CancelTaskReq{TaskID: "task-1"}).Validate())
	assert.Error(t, (&CancelTaskReq{}).Validate())
}
