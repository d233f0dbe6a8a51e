package candidate

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
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
	r.POST("/candidates", ctrl.CreateCandidate)
	r.GET("/candidates", ctrl.ListCandidates)
	r.POST("/candidates/from-email/:emailId", ctrl.FromEmail)
	r.GET("/candidates/:id", ctrl.GetCandidate)
	r.PATCH("/candidates/:id/notes", ctrl.UpdateNotes)
	r.POST("/candidates/:id/resume", ctrl.UploadResume)
	return r
}

func TestCreateCandidate(t *testing.T) {
	r := testRouter(t)

	rec, resp := testutil.MakeJSONRequest(gin.H{
		"name":  "Dana Ibrahim",
		"email": "dana.ibrahim@example.com",
		"phone": "+49 151 0000 0002",
	}, r, "/candidates", http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Dana Ibrahim", resp["name"])

	rec, resp = testutil.MakeJSONRequest(gin.H{"name": "No Email"}, r, "/candidates", http.MethodPost)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Candidate name and email are required", resp["error"])

	rec, _ = testutil.MakeJSONRequest(gin.H{"name": "X", "email": "x@example.com", "bogus": 1},
		r, "/candidates", http.MethodPost)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCandidates(t *testing.T) {
	r := testRouter(t)

	rec, candidates := testutil.MakeListRequest(r, "/candidates", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, len(candidates), 2)

	rec, candidates = testutil.MakeListRequest(r, "/candidates?search=somsak", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "Bob Somsak", candidates[0]["name"])
}

func TestGetCandidate(t *testing.T) {
	r := testRouter(t)

	rec, resp := testutil.MakeJSONRequest(nil, r,
		fmt.Sprintf("/candidates/%d", database.TestCandidate1.ID), http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, database.TestCandidate1.Name, resp["name"])

	rec, _ = testutil.MakeJSONRequest(nil, r, "/candidates/999999", http.MethodGet)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFromEmail(t *testing.T) {
	r := testRouter(t)

	rec, _ := testutil.MakeJSONRequest(nil, r, "/candidates/from-email/999999", http.MethodPost)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unclassified emails are rejected.
	rec, _ = testutil.MakeJSONRequest(nil, r,
		fmt.Sprintf("/candidates/from-email/%d", database.TestEmailApp.ID), http.MethodPost)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, testDB.Model(&model.Email{}).Where("id = ?", database.TestEmailApp.ID).
		Update("classified_as", model.CategoryCandidateApplication).Error)

	rec, resp := testutil.MakeJSONRequest(nil, r,
		fmt.Sprintf("/candidates/from-email/%d", database.TestEmailApp.ID), http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Alice Nguyen", resp["name"])
	assert.Equal(t, database.TestEmailApp.FromAddress, resp["email"])

	// Repeats return the same candidate.
	rec, repeat := testutil.MakeJSONRequest(nil, r,
		fmt.Sprintf("/candidates/from-email/%d", database.TestEmailApp.ID), http.MethodPost)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, resp["id"], repeat["id"])
}

func TestUpdateCandidateNotes(t *testing.T) {
	r := testRouter(t)

	rec, resp := testutil.MakeJSONRequest(gin.H{"notes": "Strong referral."},
		r, fmt.Sprintf("/candidates/%d/notes", database.TestCandidate2.ID), http.MethodPatch)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Strong referral.", resp["notes"])
}

func TestUploadResume(t *testing.T) {
	r := testRouter(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "resume.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Resume\nDana Ibrahim\ndana.ibrahim@example.com\n+49 151 0000 0002\nGo, PostgreSQL, Docker."))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, _ := http.NewRequest(http.MethodPost,
		fmt.Sprintf("/candidates/%d/resume", database.TestCandidate2.ID), &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var current model.Candidate
	require.NoError(t, testDB.First(&current, database.TestCandidate2.ID).Error)
	assert.Equal(t, "resume.txt", current.ResumeFilename)
	assert.Contains(t, current.ResumeText, "Go, PostgreSQL, Docker.")

	// Missing file part.
	req, _ = http.NewRequest(http.MethodPost,
		fmt.Sprintf("/candidates/%d/resume", database.TestCandidate2.ID), nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
