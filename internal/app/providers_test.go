package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"video-conversion/internal/app/conversion"
	"video-conversion/internal/app/model"
	"video-conversion/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
site_id: site-1
tenant_prefix: acme
database:
  driver: sqlite3
  dsn: %s
storage:
  backend: memory
  input_bucket: in
  output_bucket: out
status_store:
  backend: hosted
  hosted_url: http://127.0.0.1:9
files:
  root: %s
`, filepath.Join(dir, "convd.db"), filepath.Join(dir, "files"))))
	require.NoError(t, err)
	return cfg
}

func TestInitializeService(t *testing.T) {
	svc, cleanup, err := InitializeService(testConfig(t), nil, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()
	job, err := svc.Engine.CreateJob(ctx, conversion.CreateRequest{ContentHash: "abc123", Name: "clip.mp4"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, job.Status)

	stored, err := svc.Store.GetJob(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", stored.Name)

	_, err = svc.Engine.SubmitPending(ctx)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	svc.Server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), `convd_pass_duration_seconds_count{pass="submit"} 1`)
}

func TestInitializeEngine_RunsPasses(t *testing.T) {
	engine, cleanup, err := InitializeEngine(testConfig(t), nil, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	stats, err := engine.SubmitPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Submitted)

	rstats, err := engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rstats.Candidates)
}

func TestOpenDatabase_UnknownDriver(t *testing.T) {
	_, err := OpenDatabase(config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.ErrorContains(t, err, `unsupported database driver "mysql"`)
}

func TestInitializeService_BadStorageBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "tape"

	_, _, err := InitializeService(cfg, nil, zap.NewNop())
	assert.ErrorContains(t, err, `unknown storage backend "tape"`)
}
