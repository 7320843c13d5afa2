package workflow

import (
	"context"
	"docflow/internal/db"
	"docflow/internal/domain"
	"docflow/internal/errors"
	"docflow/internal/middleware"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

func newSeededService(t *testing.T) Service {
	t.Helper()
	gdb, err := db.Open(sqlite.Open(filepath.Join(t.TempDir(), "workflows.db")), logger.Silent, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb, zerolog.Nop()))
	require.NoError(t, db.SeedWorkflows(gdb, zerolog.Nop()))
	t.Cleanup(func() { db.Close(gdb, zerolog.Nop()) })
	return NewService(NewRepository(gdb))
}

func TestListWorkflows(t *testing.T) {
	svc := newSeededService(t)

	workflows, err := svc.ListWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, workflows, 6)

	// newest first
	assert.Equal(t, "Product Feature Approval", workflows[0].Name)
	for _, w := range workflows {
		assert.NotEmpty(t, w.Steps, w.Name)
	}
}

func TestGetWorkflow_StepsInOrder(t *testing.T) {
	svc := newSeededService(t)

	workflow, err := svc.GetWorkflow(context.Background(), db.SeedID("workflow:1"))
	require.NoError(t, err)
	assert.Equal(t, "Document Approval Process", workflow.Name)
	assert.Equal(t, "Alice Johnson", workflow.CreatedBy.Name)
	require.NotEmpty(t, workflow.Steps)

	again, err := svc.GetWorkflow(context.Background(), db.SeedID("workflow:1"))
	require.NoError(t, err)
	assert.Equal(t, workflow.Steps, again.Steps)
}

func TestGetWorkflow_NotFound(t *testing.T) {
	svc := newSeededService(t)

	_, err := svc.GetWorkflow(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, errors.StatusOf(err))
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(zerolog.Nop()))
	NewHandler(newSeededService(t)).RegisterRoutes(&router.RouterGroup)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.WorkflowView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 6)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows/"+list[0].ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Workflow not found")
}
