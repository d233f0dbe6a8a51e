package screening

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"hireops-backend/internal/agent"
	"hireops-backend/internal/database"
	"hireops-backend/internal/model"
	"hireops-backend/internal/utilities"
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

// testManager wires a manager onto the shared test database with mock agents.
// The evaluation worker is not started; tests drive evaluation synchronously.
func testManager(t *testing.T) *Manager {
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("EMAIL_CLASSIFIER_MOCK", "true")
	t.Setenv("RESUME_SCORER_MOCK", "true")
	t.Setenv("INTERVIEW_EVALUATOR_MOCK", "true")

	client := agent.NewClient()
	orch := workflow.NewOrchestrator(testDB, agent.NewClassifier(testDB.DB, client), agent.NewScorer(testDB.DB, client))
	mgr, err := NewManager(testDB, agent.NewEvaluator(testDB.DB, client), orch)
	require.NoError(t, err)
	return mgr
}

// makeApplication inserts a fresh candidate and application so link tests do
// not interfere with each other.
func makeApplication(t *testing.T, stage model.Stage, resumeScore *float64) *model.Application {
	t.Helper()

	candidate := model.Candidate{
		Name:  "Link Test Candidate",
		Email: fmt.Sprintf("link-test-%d@example.com", time.Now().UnixNano()),
	}
	require.NoError(t, testDB.Create(&candidate).Error)

	app := model.Application{
		CandidateID:      candidate.ID,
		JobID:            database.TestJobBackend.ID,
		Stage:            stage,
		ResumeScore:      resumeScore,
		ScoreMaxAttempts: model.DefaultScoreMaxAttempts,
	}
	require.NoError(t, testDB.Create(&app).Error)
	return &app
}

func TestIssueLink(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, utilities.Ptr(85.0))

	link, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)

	assert.Len(t, link.Token, 32)
	assert.Equal(t, model.LinkStatusGenerated, link.Status)
	assert.WithinDuration(t, time.Now().Add(time.Hour), link.ExpiresAt, time.Minute)

	var current model.Application
	require.NoError(t, testDB.First(&current, app.ID).Error)
	assert.Equal(t, model.StageScreeningScheduled, current.Stage)
	require.NotNil(t, current.InterviewLinkStatus)
	assert.Equal(t, model.LinkStatusGenerated, *current.InterviewLinkStatus)
}

func TestIssueRejectsSecondActiveLink(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, nil)

	_, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)

	_, err = mgr.Issue(context.Background(), app.ID, time.Hour)
	assert.ErrorIs(t, err, ErrDuplicateActiveLink)
}

func TestRegenerateExpiresActiveLink(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, nil)

	first, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)

	second, err := mgr.Regenerate(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	var old model.InterviewLink
	require.NoError(t, testDB.First(&old, first.ID).Error)
	assert.Equal(t, model.LinkStatusExpired, old.Status)

	res, err := mgr.Validate(context.Background(), first.Token)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "expired", res.Reason)
}

func TestValidateUnknownToken(t *testing.T) {
	mgr := testManager(t)

	res, err := mgr.Validate(context.Background(), "no-such-token")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "invalid_link", res.Reason)
}

func TestValidateOpensLinkOnFirstAccess(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, nil)

	link, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)

	res, err := mgr.Validate(context.Background(), link.Token)
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.Equal(t, string(model.LinkStatusOpened), res.Status)
	assert.Equal(t, "Link Test Candidate", res.CandidateName)
	assert.Equal(t, database.TestJobBackend.Title, res.JobTitle)

	var current model.InterviewLink
	require.NoError(t, testDB.First(&current, link.ID).Error)
	assert.Equal(t, model.LinkStatusOpened, current.Status)
	assert.NotNil(t, current.OpenedAt)
}

func TestValidateAppliesLazyExpiry(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, nil)

	link, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)
	require.NoError(t, testDB.Model(link).Update("expires_at", time.Now().Add(-time.Minute)).Error)

	res, err := mgr.Validate(context.Background(), link.Token)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "expired", res.Reason)

	var current model.InterviewLink
	require.NoError(t, testDB.First(&current, link.ID).Error)
	assert.Equal(t, model.LinkStatusExpired, current.Status)
}

func TestRecordStatusNeverRegresses(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, nil)

	link, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)

	conv := "conv-regress-1"
	_, err = mgr.RecordStatus(context.Background(), link.Token, model.LinkStatusInterviewStarted, &conv)
	require.NoError(t, err)

	// The earlier status is ignored, not an error.
	current, err := mgr.RecordStatus(context.Background(), link.Token, model.LinkStatusOpened, nil)
	require.NoError(t, err)
	assert.Equal(t, model.LinkStatusInterviewStarted, current.Status)
	require.NotNil(t, current.ConversationID)
	assert.Equal(t, conv, *current.ConversationID)

	var events []model.Event
	require.NoError(t, testDB.Where("app_id = ? AND event_type = ?", app.ID, model.EventStatusRegressionIgnored).
		Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestRecordStatusRejectsUnrankedStatus(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, nil)

	link, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)

	_, err = mgr.RecordStatus(context.Background(), link.Token, model.LinkStatusExpired, nil)
	assert.Error(t, err)
}

func TestRecordFaceTelemetryAverages(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, nil)

	link, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)

	require.NoError(t, mgr.RecordFaceTelemetry(context.Background(), link.Token, map[string]float64{"attention": 1.0}))
	require.NoError(t, mgr.RecordFaceTelemetry(context.Background(), link.Token, map[string]float64{"attention": 0.5}))

	var current model.InterviewLink
	require.NoError(t, testDB.First(&current, link.ID).Error)
	require.NotNil(t, current.FaceTrackingJSON)
	assert.Contains(t, *current.FaceTrackingJSON, `"count":2`)
	assert.Contains(t, *current.FaceTrackingJSON, `"attention":0.75`)

	var currentApp model.Application
	require.NoError(t, testDB.First(&currentApp, app.ID).Error)
	assert.NotNil(t, currentApp.FaceTrackingJSON)
}

func TestRecordTranscriptIsIdempotent(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, utilities.Ptr(85.0))

	link, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)

	require.NoError(t, mgr.RecordTranscript(context.Background(), link.Token, "Q: ... A: ...", 300))

	var current model.Application
	require.NoError(t, testDB.First(&current, app.ID).Error)
	require.NotNil(t, current.ScreeningTranscript)
	assert.Equal(t, "Q: ... A: ...", *current.ScreeningTranscript)
	require.NotNil(t, current.ScreeningStatus)
	assert.Equal(t, "completed", *current.ScreeningStatus)

	var currentLink model.InterviewLink
	require.NoError(t, testDB.First(&currentLink, link.ID).Error)
	assert.Equal(t, model.LinkStatusInterviewCompleted, currentLink.Status)

	// A second submission must not overwrite or queue a second evaluation.
	require.NoError(t, mgr.RecordTranscript(context.Background(), link.Token, "different text", 10))

	require.NoError(t, testDB.First(&current, app.ID).Error)
	assert.Equal(t, "Q: ... A: ...", *current.ScreeningTranscript)

	var events []model.Event
	require.NoError(t, testDB.Where("app_id = ? AND event_type = ?", app.ID, model.EventTranscriptReceived).
		Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestRecordTranscriptUnknownToken(t *testing.T) {
	mgr := testManager(t)
	err := mgr.RecordTranscript(context.Background(), "no-such-token", "text", 60)
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestRecordManualTranscriptRejectsOverwrite(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageScreeningScheduled, utilities.Ptr(80.0))

	require.NoError(t, mgr.RecordManualTranscript(context.Background(), app.ID, "Manual interview notes.", 900))

	err := mgr.RecordManualTranscript(context.Background(), app.ID, "Other notes.", 10)
	assert.ErrorIs(t, err, ErrTranscriptExists)
}

func TestEvaluateNowRunsDecision(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageScreeningScheduled, utilities.Ptr(90.0))
	require.NoError(t, testDB.Model(app).Update("screening_transcript",
		"Q: Tell me about Go. A: Five years of production services.").Error)

	updated, err := mgr.EvaluateNow(context.Background(), app.ID)
	require.NoError(t, err)

	// Mock evaluation derives 90*0.7+20 = 83; the decision weighs
	// 0.4*90 + 0.6*83 = 85.8, rounded to 86, and both minimums clear.
	require.NotNil(t, updated.InterviewScore)
	assert.Equal(t, 83.0, *updated.InterviewScore)
	require.NotNil(t, updated.FinalScore)
	assert.Equal(t, 86.0, *updated.FinalScore)
	require.NotNil(t, updated.Recommendation)
	assert.Equal(t, model.RecommendationAdvance, *updated.Recommendation)
	assert.Equal(t, model.StageShortlisted, updated.Stage)
}

func TestEvaluateNowRequiresTranscript(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageScreeningScheduled, nil)

	_, err := mgr.EvaluateNow(context.Background(), app.ID)
	assert.ErrorIs(t, err, ErrNoTranscript)
}

func TestProcessWebhookTranscript(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, utilities.Ptr(75.0))

	link, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)

	conv := "conv-webhook-1"
	_, err = mgr.RecordStatus(context.Background(), link.Token, model.LinkStatusInterviewStarted, &conv)
	require.NoError(t, err)

	require.NoError(t, mgr.ProcessWebhookTranscript(context.Background(), conv, "Webhook transcript.", 420))

	var current model.Application
	require.NoError(t, testDB.First(&current, app.ID).Error)
	require.NotNil(t, current.ScreeningTranscript)
	assert.Equal(t, "Webhook transcript.", *current.ScreeningTranscript)

	err = mgr.ProcessWebhookTranscript(context.Background(), "conv-unknown", "text", 1)
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestEvaluateRespectsManualRejection(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageScreeningScheduled, utilities.Ptr(90.0))

	require.NoError(t, testDB.Model(&model.Application{}).Where("id = ?", app.ID).
		Updates(map[string]any{
			"screening_transcript": "Candidate walked through the previous role.",
			"screening_status":     "completed",
		}).Error)

	// HR rejects before the queued evaluation runs.
	rejected, err := mgr.Orchestrator.ChangeStage(context.Background(), app.ID, model.StageRejected, app.Version, true)
	require.NoError(t, err)

	got, err := mgr.EvaluateNow(context.Background(), app.ID)
	require.NoError(t, err)

	// The interview score is recorded but the rejection stands: no stage
	// change, no final decision.
	assert.Equal(t, model.StageRejected, got.Stage)
	assert.Equal(t, rejected.Version, got.Version)
	require.NotNil(t, got.InterviewScore)
	assert.Nil(t, got.FinalScore)
}

func TestActiveLinkUniquenessEnforcedByStore(t *testing.T) {
	mgr := testManager(t)
	app := makeApplication(t, model.StageMatched, utilities.Ptr(85.0))

	_, err := mgr.Issue(context.Background(), app.ID, time.Hour)
	require.NoError(t, err)

	// A second writer that raced past the duplicate scan still hits the
	// partial unique index.
	dup := model.InterviewLink{
		Token:     newToken(),
		AppID:     app.ID,
		Status:    model.LinkStatusGenerated,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	err = testDB.Create(&dup).Error
	require.Error(t, err)

	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, uniqueViolation, pgErr.Code)
}
