package inbox

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

	"hireops-backend/internal/agent"
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

func testRouter(t *testing.T) *gin.Engine {
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("EMAIL_CLASSIFIER_MOCK", "true")
	t.Setenv("RESUME_SCORER_MOCK", "true")

	client := agent.NewClient()
	orch := workflow.NewOrchestrator(testDB, agent.NewClassifier(testDB.DB, client), agent.NewScorer(testDB.DB, client))
	ctrl := NewController(testDB, orch)

	r := gin.New()
	r.POST("/inbox/connect", ctrl.Connect)
	r.POST("/inbox/sync", ctrl.Sync)
	r.GET("/inbox/emails", ctrl.ListEmails)
	r.GET("/inbox/emails/:id", ctrl.GetEmail)
	r.POST("/inbox/emails/:id/classify", ctrl.ClassifyEmail)
	r.POST("/inbox/emails/:id/workflow", ctrl.RunWorkflow)
	r.POST("/inbox/classify-all", ctrl.ClassifyAll)
	r.POST("/inbox/workflow/run", ctrl.RunAllWorkflows)
	return r
}

func TestConnect(t *testing.T) {
	r := testRouter(t)

	// The test database is already seeded, so nothing extra is loaded.
	rec, resp := testutil.MakeJSONRequest(nil, r, "/inbox/connect", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["connected"])
	assert.GreaterOrEqual(t, resp["total"], 2.0)
	assert.Equal(t, 0.0, resp["loaded"])
}

func TestSync(t *testing.T) {
	r := testRouter(t)

	rec, resp := testutil.MakeJSONRequest(nil, r, "/inbox/sync", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, resp["total"], 2.0)
}

func TestListEmails(t *testing.T) {
	r := testRouter(t)

	rec, emails := testutil.MakeListRequest(r, "/inbox/emails", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, len(emails), 2)

	// Full bodies stay out of the listing payload.
	for _, email := range emails {
		_, present := email["body_full"]
		assert.False(t, present)
	}
}

func TestGetEmail(t *testing.T) {
	r := testRouter(t)

	rec, resp := testutil.MakeJSONRequest(nil, r,
		fmt.Sprintf("/inbox/emails/%d", database.TestEmailApp.ID), http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, database.TestEmailApp.Subject, resp["subject"])
	assert.NotEmpty(t, resp["body_full"])

	rec, _ = testutil.MakeJSONRequest(nil, r, "/inbox/emails/999999", http.MethodGet)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassifyEmail(t *testing.T) {
	r := testRouter(t)

	rec, resp := testutil.MakeJSONRequest(nil, r,
		fmt.Sprintf("/inbox/emails/%d/classify", database.TestEmailNoise.ID), http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.CategoryGeneral, resp["classified_as"])

	rec, _ = testutil.MakeJSONRequest(nil, r, "/inbox/emails/999999/classify", http.MethodPost)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassifyAll(t *testing.T) {
	r := testRouter(t)

	rec, results := testutil.MakeListRequest(r, "/inbox/classify-all", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, email := range results {
		assert.NotEmpty(t, email["classified_as"])
	}

	// Nothing left to classify on a second pass.
	rec, results = testutil.MakeListRequest(r, "/inbox/classify-all", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, results)
}

func TestRunWorkflow(t *testing.T) {
	r := testRouter(t)

	rec, resp := testutil.MakeJSONRequest(nil, r,
		fmt.Sprintf("/inbox/emails/%d/workflow", database.TestEmailApp.ID), http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.CategoryCandidateApplication, resp["category"])
	assert.NotNil(t, resp["candidate_id"])

	rec, _ = testutil.MakeJSONRequest(nil, r, "/inbox/emails/999999/workflow", http.MethodPost)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunAllWorkflows(t *testing.T) {
	r := testRouter(t)

	rec, _ := testutil.MakeListRequest(r, "/inbox/workflow/run", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)

	// Everything pending has been handled one way or the other; a second run
	// only reports skips.
	rec, results := testutil.MakeListRequest(r, "/inbox/workflow/run", http.MethodPost)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, res := range results {
		assert.Equal(t, true, res["skipped"])
	}
}
