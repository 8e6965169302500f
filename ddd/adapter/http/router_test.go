package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcode-orchestrator/ddd/application/app"
	"transcode-orchestrator/pkg/config"
	"transcode-orchestrator/pkg/errno"
	"transcode-orchestrator/pkg/manager"
	"transcode-orchestrator/pkg/restapi"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Store.FilePath = filepath.Join(t.TempDir(), "tasks.json")
	cfg.Relay.ReadRelays = []string{"wss://relay.example.com"}
	cfg.Relay.WriteRelays = []string{"wss://relay.example.com"}
	cfg.Orchestrator.CompletedMaxAge = 7 * 24 * time.Hour

	orchestratorApp, err := app.NewOrchestratorApp(cfg)
	require.NoError(t, err)
	t.Cleanup(orchestratorApp.Close)

	engine := gin.New()
	registerTaskRoutes(engine, &manager.Dependencies{Config: cfg, OrchestratorApp: orchestratorApp})
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) (int, restapi.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var resp restapi.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func registerViaAPI(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	status, resp := doJSON(t, engine, http.MethodPost, "/api/v1/tasks", `{"draft_id":"draft-1","title":"demo"}`)
	require.Equal(t, http.StatusOK, status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	taskID, _ := data["task_id"].(string)
	require.NotEmpty(t, taskID)
	return taskID
}

func TestTaskRoutes_ResumeTask(t *testing.T) {
	engine := newTestEngine(t)
	taskID := registerViaAPI(t, engine)

	status, resp := doJSON(t, engine, http.MethodPost, "/api/v1/tasks/"+taskID+"/resume", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, errno.OK.Code, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, taskID, data["task_id"])
}

func TestTaskRoutes_ResumeUnknownTask(t *testing.T) {
	engine := newTestEngine(t)

	status, resp := doJSON(t, engine, http.MethodPost, "/api/v1/tasks/no-such-task/resume", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, errno.ErrTaskNotFound.Code, resp.Code)
}

func TestTaskRoutes_Sweep(t *testing.T) {
	engine := newTestEngine(t)
	registerViaAPI(t, engine)

	status, resp := doJSON(t, engine, http.MethodPost, "/api/v1/tasks/sweep", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, errno.OK.Code, resp.Code)

	// 没有过期终态任务时清理数量为0
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), data["removed"])
}

func TestTaskRoutes_GetAndCancel(t *testing.T) {
	engine := newTestEngine(t)
	taskID := registerViaAPI(t, engine)

	status, resp := doJSON(t, engine, http.MethodGet, "/api/v1/tasks/"+taskID, "")
	assert.Equal(t, http.StatusOK, status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "pending", data["status"])

	status, _ = doJSON(t, engine, http.MethodPost, "/api/v1/tasks/"+taskID+"/cancel", "")
	assert.Equal(t, http.StatusOK, status)

	status, resp = doJSON(t, engine, http.MethodGet, "/api/v1/tasks/"+taskID, "")
	assert.Equal(t, http.StatusOK, status)
	data, ok = resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "cancelled", data["status"])
}
