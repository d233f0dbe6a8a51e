package settings

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
	r.GET("/settings/agents", ctrl.GetAgents)
	r.GET("/settings/config", ctrl.GetConfig)
	r.GET("/settings/usage", ctrl.GetUsage)
	return r
}

func TestGetAgents(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")
	r := testRouter()

	rec, agents := testutil.MakeListRequest(r, "/settings/agents", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, agents, 4)

	// Without an API key every agent runs its mock.
	for _, a := range agents {
		assert.Equal(t, "mock", a["mode"])
	}
}

func TestGetAgentsLiveMode(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "key")
	t.Setenv("EMAIL_CLASSIFIER_AGENT_ID", "ag-123")
	t.Setenv("EMAIL_CLASSIFIER_MOCK", "")
	t.Setenv("RESUME_SCORER_AGENT_ID", "")
	r := testRouter()

	rec, agents := testutil.MakeListRequest(r, "/settings/agents", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)

	modes := map[string]string{}
	for _, a := range agents {
		modes[a["agent"].(string)] = a["mode"].(string)
	}
	assert.Equal(t, "live", modes["email_classifier"])
	assert.Equal(t, "mock", modes["resume_scorer"])
}

func TestGetConfig(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("AGENT_WEBHOOK_SECRET", "secret")
	t.Setenv("PUBLIC_RATE_LIMIT", "9")
	r := testRouter()

	rec, resp := testutil.MakeJSONRequest(nil, r, "/settings/config", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, false, resp["api_key_configured"])
	assert.Equal(t, true, resp["webhook_configured"])
	assert.Equal(t, 9.0, resp["rate_limit_per_second"])

	// The secret itself never appears anywhere in the payload.
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestGetUsage(t *testing.T) {
	r := testRouter()

	rows := []model.AgentUsage{
		{Agent: "email_classifier", Mode: "mock", InputTokens: 0, OutputTokens: 0, LatencyMS: 5, Status: "success"},
		{Agent: "email_classifier", Mode: "mock", InputTokens: 0, OutputTokens: 0, LatencyMS: 5, Status: "error"},
		{Agent: "resume_scorer", Mode: "live", InputTokens: 120, OutputTokens: 80, LatencyMS: 900, Status: "success"},
	}
	require.NoError(t, testDB.Create(&rows).Error)

	rec, entries := testutil.MakeListRequest(r, "/settings/usage", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, entries)

	var classifier map[string]interface{}
	for _, e := range entries {
		if e["agent"] == "email_classifier" && e["mode"] == "mock" {
			classifier = e
		}
	}
	require.NotNil(t, classifier)
	assert.GreaterOrEqual(t, classifier["calls"], 2.0)
	assert.GreaterOrEqual(t, classifier["errors"], 1.0)
}
