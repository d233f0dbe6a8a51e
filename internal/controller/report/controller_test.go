package report

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"hireops-backend/internal/database"
	"hireops-backend/internal/model"
	"hireops-backend/internal/testutil"
	"hireops-backend/internal/workflow"
)

var testDB *database.DBinstanceStruct

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	var err error
	var midTeardown func(context.Context, ...testcontainers.TerminateOption) error
	midTeardown, testDB, err = database.GetTestDB()
	if err != nil {
		fmt.Println("Failed to set up test database:", err)
		os.Exit(1)
	}

	m.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if midTeardown != nil {
		_ = midTeardown(ctx)
	}
}

func testRouter() *gin.Engine {
	ctrl := NewController(testDB)

	r := gin.New()
	r.GET("/reports/funnel", ctrl.Funnel)
	r.GET("/reports/top-candidates", ctrl.TopCandidates)
	r.GET("/reports/summary", ctrl.GetSummary)
	r.GET("/reports/activity", ctrl.Activity)
	return r
}

func TestFunnel(t *testing.T) {
	r := testRouter()

	rec, funnel := testutil.MakeListRequest(r, "/reports/funnel", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)

	// Every stage is reported in funnel order, zero counts included.
	require.Len(t, funnel, len(model.PipelineStages))
	for i, stage := range model.PipelineStages {
		assert.Equal(t, string(stage), funnel[i]["stage"])
	}
	assert.GreaterOrEqual(t, funnel[2]["count"], 1.0) // matched

	rec, _ = testutil.MakeJSONRequest(nil, r, "/reports/funnel?job_id=abc", http.MethodGet)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTopCandidates(t *testing.T) {
	r := testRouter()

	rec, apps := testutil.MakeListRequest(r, "/reports/top-candidates?limit=5", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, apps)
	assert.LessOrEqual(t, len(apps), 5)

	// Scores descend.
	prev := 101.0
	for _, app := range apps {
		score, ok := app["resume_score"].(float64)
		if final, hasFinal := app["final_score"].(float64); hasFinal {
			score, ok = final, true
		}
		require.True(t, ok)
		assert.LessOrEqual(t, score, prev)
		prev = score
	}
}

func TestSummary(t *testing.T) {
	r := testRouter()

	rec, resp := testutil.MakeJSONRequest(nil, r, "/reports/summary", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.GreaterOrEqual(t, resp["open_jobs"], 2.0)
	assert.GreaterOrEqual(t, resp["candidates"], 2.0)
	assert.GreaterOrEqual(t, resp["applications"], 1.0)
	assert.GreaterOrEqual(t, resp["pending_emails"], 1.0)
}

func TestActivity(t *testing.T) {
	r := testRouter()

	workflow.AppendEvent(testDB.DB, &database.TestApplication.ID, model.EventStageChanged, map[string]any{
		"from": "matched", "to": "screening_scheduled",
	})

	rec, events := testutil.MakeListRequest(r, "/reports/activity", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, events)
	assert.Equal(t, model.EventStageChanged, events[0]["event_type"])
}
