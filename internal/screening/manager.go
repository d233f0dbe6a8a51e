// Package screening manages interview links: issuing, validation, status
// tracking, face telemetry, transcript intake and evaluation dispatch.
package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	jobs "github.com/jdziat/simple-durable-jobs"
	"gorm.io/gorm"

	"hireops-backend/internal/agent"
	"hireops-backend/internal/database"
	"hireops-backend/internal/model"
	"hireops-backend/internal/utilities"
	"hireops-backend/internal/workflow"
)

// Sentinel errors mapped to HTTP statuses at the controller boundary.
var (
	ErrDuplicateActiveLink = errors.New("application already has an active interview link")
	ErrLinkNotFound        = errors.New("interview link not found")
	ErrNoTranscript        = errors.New("application has no interview transcript")
	ErrTranscriptExists    = errors.New("application already has a transcript")
)

// DefaultLinkTTL is how long an issued link admits the candidate.
const DefaultLinkTTL = 72 * time.Hour

const uniqueViolation = "23505"

const evaluateJobName = "evaluate-transcript"

// evaluateArgs is the durable job payload for async transcript evaluation.
type evaluateArgs struct {
	AppID uint `json:"app_id"`
}

// Manager owns the interview link lifecycle and evaluation dispatch.
type Manager struct {
	DB           *database.DBinstanceStruct
	Evaluator    *agent.Evaluator
	Orchestrator *workflow.Orchestrator
	queue        *jobs.Queue
}

// NewManager wires the manager and its durable evaluation queue. Queue
// storage lives in the main database so enqueued evaluations survive
// restarts.
func NewManager(db *database.DBinstanceStruct, evaluator *agent.Evaluator, orch *workflow.Orchestrator) (*Manager, error) {
	storage := jobs.NewGormStorage(db.DB)
	if err := storage.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to migrate job storage: %w", err)
	}

	m := &Manager{
		DB:           db,
		Evaluator:    evaluator,
		Orchestrator: orch,
		queue:        jobs.New(storage),
	}
	m.queue.Register(evaluateJobName, func(ctx context.Context, args evaluateArgs) error {
		return m.evaluate(ctx, args.AppID)
	})
	return m, nil
}

// StartWorker runs the evaluation worker until ctx is cancelled.
func (m *Manager) StartWorker(ctx context.Context) {
	worker := m.queue.NewWorker(jobs.WorkerQueue("default", jobs.Concurrency(2)))
	go func() {
		if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("evaluation worker stopped: %v", err)
		}
	}()
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Issue creates a new interview link for an application. At most one active
// link may exist per application; use Regenerate to replace it.
func (m *Manager) Issue(ctx context.Context, appID uint, ttl time.Duration) (*model.InterviewLink, error) {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}

	var app model.Application
	if err := m.DB.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	var existing []model.InterviewLink
	if err := m.DB.WithContext(ctx).Where("app_id = ?", appID).Find(&existing).Error; err != nil {
		return nil, err
	}
	for i := range existing {
		switch {
		case existing[i].Active(now):
			return nil, ErrDuplicateActiveLink
		case existing[i].Status != model.LinkStatusExpired &&
			existing[i].Status != model.LinkStatusInterviewCompleted:
			// Past its expiry but never accessed since; expire it so the
			// store-level uniqueness check sees only truly active rows.
			if err := m.expireLink(ctx, &existing[i]); err != nil {
				return nil, err
			}
		}
	}

	link := model.InterviewLink{
		Token:     newToken(),
		AppID:     appID,
		Status:    model.LinkStatusGenerated,
		ExpiresAt: now.Add(ttl),
	}
	if err := m.DB.WithContext(ctx).Create(&link).Error; err != nil {
		// The partial unique index closes the race two concurrent issuers
		// have between the scan above and this insert.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateActiveLink
		}
		return nil, err
	}

	if err := m.setAppLinkStatus(ctx, appID, model.LinkStatusGenerated); err != nil {
		return nil, err
	}
	if app.Stage.CanAdvanceTo(model.StageScreeningScheduled) {
		if _, err := m.Orchestrator.ChangeStage(ctx, appID, model.StageScreeningScheduled, app.Version, false); err != nil {
			return nil, err
		}
	}

	workflow.AppendEvent(m.DB.DB, &appID, model.EventInterviewLinkGenerated, map[string]any{
		"link_id":    link.ID,
		"expires_at": link.ExpiresAt,
	})
	return &link, nil
}

// Regenerate expires any active links for the application, then issues a
// fresh one.
func (m *Manager) Regenerate(ctx context.Context, appID uint, ttl time.Duration) (*model.InterviewLink, error) {
	err := m.DB.WithContext(ctx).Model(&model.InterviewLink{}).
		Where("app_id = ? AND status NOT IN ?", appID,
			[]model.LinkStatus{model.LinkStatusExpired, model.LinkStatusInterviewCompleted}).
		Update("status", model.LinkStatusExpired).Error
	if err != nil {
		return nil, err
	}
	return m.Issue(ctx, appID, ttl)
}

// MarkSent records that the link was delivered to the candidate.
func (m *Manager) MarkSent(ctx context.Context, linkID uint) (*model.InterviewLink, error) {
	var link model.InterviewLink
	if err := m.DB.WithContext(ctx).First(&link, linkID).Error; err != nil {
		return nil, err
	}
	return m.applyStatus(ctx, &link, model.LinkStatusSent, nil)
}

// ValidationResult is the structured outcome of a public link validation.
// Invalid links carry a reason instead of an error: the public page shows
// the reason, it never sees internals.
type ValidationResult struct {
	Valid         bool   `json:"valid"`
	Reason        string `json:"reason,omitempty"`
	Token         string `json:"token,omitempty"`
	Status        string `json:"status,omitempty"`
	CandidateName string `json:"candidate_name,omitempty"`
	JobTitle      string `json:"job_title,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Validate checks a public interview token. It fails closed: unknown tokens,
// expired links and completed interviews are all invalid. Expiry is applied
// lazily here; the first valid access moves a generated/sent link to opened.
func (m *Manager) Validate(ctx context.Context, token string) (ValidationResult, error) {
	var link model.InterviewLink
	err := m.DB.WithContext(ctx).Where("token = ?", token).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ValidationResult{Valid: false, Reason: "invalid_link"}, nil
	}
	if err != nil {
		return ValidationResult{}, err
	}

	now := time.Now()
	switch {
	case link.Status == model.LinkStatusExpired:
		return ValidationResult{Valid: false, Reason: "expired"}, nil
	case link.Status == model.LinkStatusInterviewCompleted:
		return ValidationResult{Valid: false, Reason: "already_completed"}, nil
	case link.Expired(now):
		if err := m.expireLink(ctx, &link); err != nil {
			return ValidationResult{}, err
		}
		return ValidationResult{Valid: false, Reason: "expired"}, nil
	}

	if link.Status == model.LinkStatusGenerated || link.Status == model.LinkStatusSent {
		link.OpenedAt = &now
		if _, err := m.applyStatus(ctx, &link, model.LinkStatusOpened, nil); err != nil {
			return ValidationResult{}, err
		}
	}

	var app model.Application
	if err := m.DB.WithContext(ctx).Preload("Candidate").Preload("Job").First(&app, link.AppID).Error; err != nil {
		return ValidationResult{}, err
	}

	return ValidationResult{
		Valid:         true,
		Token:         link.Token,
		Status:        string(link.Status),
		CandidateName: app.Candidate.Name,
		JobTitle:      app.Job.Title,
		ExpiresAt:     link.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// RecordStatus applies a candidate-reported status transition. Status only
// moves forward; regressions are ignored and logged, never an error the
// public client has to handle.
func (m *Manager) RecordStatus(ctx context.Context, token string, status model.LinkStatus, conversationID *string) (*model.InterviewLink, error) {
	link, err := m.activeLink(ctx, token)
	if err != nil {
		return nil, err
	}

	newRank, ok := status.Rank()
	if !ok {
		return nil, fmt.Errorf("status %q cannot be set by the client", status)
	}
	curRank, _ := link.Status.Rank()
	if newRank <= curRank {
		workflow.AppendEvent(m.DB.DB, &link.AppID, model.EventStatusRegressionIgnored, map[string]any{
			"current":   link.Status,
			"requested": status,
		})
		return link, nil
	}

	return m.applyStatus(ctx, link, status, conversationID)
}

// applyStatus persists a forward link status change with its timestamps,
// mirrors it onto the application and appends the matching event.
func (m *Manager) applyStatus(ctx context.Context, link *model.InterviewLink, status model.LinkStatus, conversationID *string) (*model.InterviewLink, error) {
	now := time.Now()
	link.Status = status
	if conversationID != nil {
		link.ConversationID = conversationID
	}

	var eventType string
	switch status {
	case model.LinkStatusSent:
		eventType = model.EventInterviewLinkSent
	case model.LinkStatusOpened:
		if link.OpenedAt == nil {
			link.OpenedAt = &now
		}
		eventType = model.EventInterviewLinkOpened
	case model.LinkStatusInterviewStarted:
		link.InterviewStartedAt = &now
		eventType = model.EventInterviewStarted
	case model.LinkStatusInterviewCompleted:
		link.InterviewCompletedAt = &now
		eventType = model.EventInterviewCompleted
	}

	if err := m.DB.WithContext(ctx).Save(link).Error; err != nil {
		return nil, err
	}
	if err := m.setAppLinkStatus(ctx, link.AppID, status); err != nil {
		return nil, err
	}
	if eventType != "" {
		workflow.AppendEvent(m.DB.DB, &link.AppID, eventType, map[string]any{
			"link_id": link.ID,
			"status":  status,
		})
	}
	return link, nil
}

func (m *Manager) setAppLinkStatus(ctx context.Context, appID uint, status model.LinkStatus) error {
	return m.DB.WithContext(ctx).Model(&model.Application{}).
		Where("id = ?", appID).
		Update("interview_link_status", status).Error
}

func (m *Manager) expireLink(ctx context.Context, link *model.InterviewLink) error {
	link.Status = model.LinkStatusExpired
	if err := m.DB.WithContext(ctx).Save(link).Error; err != nil {
		return err
	}
	return m.setAppLinkStatus(ctx, link.AppID, model.LinkStatusExpired)
}

// activeLink loads a link by token and applies lazy expiry. Expired, unknown
// and completed links are not usable for further writes.
func (m *Manager) activeLink(ctx context.Context, token string) (*model.InterviewLink, error) {
	var link model.InterviewLink
	err := m.DB.WithContext(ctx).Where("token = ?", token).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	if link.Status == model.LinkStatusExpired {
		return nil, ErrLinkNotFound
	}
	if link.Expired(time.Now()) && link.Status != model.LinkStatusInterviewCompleted {
		if err := m.expireLink(ctx, &link); err != nil {
			return nil, err
		}
		return nil, ErrLinkNotFound
	}
	return &link, nil
}

// faceTelemetry is the persisted shape of FaceTrackingJSON.
type faceTelemetry struct {
	Count    int                  `json:"count"`
	Averages map[string]float64   `json:"averages"`
	Samples  []map[string]float64 `json:"samples"`
}

const faceSampleWindow = 100

// RecordFaceTelemetry folds one face-tracking snapshot into the link's
// telemetry: running averages over all samples, raw snapshots bounded to the
// last hundred.
func (m *Manager) RecordFaceTelemetry(ctx context.Context, token string, sample map[string]float64) error {
	link, err := m.activeLink(ctx, token)
	if err != nil {
		return err
	}

	telemetry := faceTelemetry{Averages: map[string]float64{}}
	if link.FaceTrackingJSON != nil {
		if err := json.Unmarshal([]byte(*link.FaceTrackingJSON), &telemetry); err != nil {
			telemetry = faceTelemetry{Averages: map[string]float64{}}
		}
	}
	if telemetry.Averages == nil {
		telemetry.Averages = map[string]float64{}
	}

	telemetry.Count++
	for key, value := range sample {
		avg := telemetry.Averages[key]
		telemetry.Averages[key] = avg + (value-avg)/float64(telemetry.Count)
	}
	telemetry.Samples = append(telemetry.Samples, sample)
	if len(telemetry.Samples) > faceSampleWindow {
		telemetry.Samples = telemetry.Samples[len(telemetry.Samples)-faceSampleWindow:]
	}

	raw, err := json.Marshal(telemetry)
	if err != nil {
		return err
	}
	link.FaceTrackingJSON = utilities.Ptr(string(raw))
	if err := m.DB.WithContext(ctx).Save(link).Error; err != nil {
		return err
	}
	return m.DB.WithContext(ctx).Model(&model.Application{}).
		Where("id = ?", link.AppID).
		Update("face_tracking_json", string(raw)).Error
}

// RecordTranscript is the terminal public action for a link: it persists the
// transcript, completes the link and queues evaluation. It is idempotent —
// a second submission for the same application is a no-op and does not queue
// a second evaluation.
func (m *Manager) RecordTranscript(ctx context.Context, token, transcript string, durationSeconds int) error {
	var link model.InterviewLink
	err := m.DB.WithContext(ctx).Where("token = ?", token).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrLinkNotFound
	}
	if err != nil {
		return err
	}

	var app model.Application
	if err := m.DB.WithContext(ctx).First(&app, link.AppID).Error; err != nil {
		return err
	}
	if app.ScreeningTranscript != nil {
		return nil
	}
	if link.Status == model.LinkStatusExpired || (link.Expired(time.Now()) && link.Status != model.LinkStatusInterviewCompleted) {
		return ErrLinkNotFound
	}

	app.ScreeningTranscript = utilities.Ptr(transcript)
	app.ScreeningStatus = utilities.Ptr("completed")
	if err := m.DB.WithContext(ctx).Model(&app).Updates(map[string]any{
		"screening_transcript": app.ScreeningTranscript,
		"screening_status":     app.ScreeningStatus,
	}).Error; err != nil {
		return err
	}
	if link.Status != model.LinkStatusInterviewCompleted {
		if _, err := m.applyStatus(ctx, &link, model.LinkStatusInterviewCompleted, nil); err != nil {
			return err
		}
	}

	workflow.AppendEvent(m.DB.DB, &app.ID, model.EventTranscriptReceived, map[string]any{
		"link_id":          link.ID,
		"duration_seconds": durationSeconds,
		"transcript_chars": len(transcript),
	})

	if _, err := m.queue.Enqueue(ctx, evaluateJobName, evaluateArgs{AppID: app.ID}); err != nil {
		// The transcript is safe; evaluation can be triggered manually.
		log.Printf("failed to enqueue evaluation for application %d: %v", app.ID, err)
		workflow.AppendEvent(m.DB.DB, &app.ID, model.EventEvaluationFailed, map[string]any{
			"error": "enqueue failed: " + err.Error(),
		})
		return nil
	}
	workflow.AppendEvent(m.DB.DB, &app.ID, model.EventEvaluationQueued, nil)
	return nil
}

// RecordManualTranscript stores a transcript entered from the dashboard for
// an interview held outside the link flow, then queues evaluation. Unlike
// the public path it rejects overwrites loudly.
func (m *Manager) RecordManualTranscript(ctx context.Context, appID uint, transcript string, durationSeconds int) error {
	var app model.Application
	if err := m.DB.WithContext(ctx).First(&app, appID).Error; err != nil {
		return err
	}
	if app.ScreeningTranscript != nil {
		return ErrTranscriptExists
	}

	app.ScreeningTranscript = utilities.Ptr(transcript)
	app.ScreeningStatus = utilities.Ptr("completed")
	if err := m.DB.WithContext(ctx).Model(&app).Updates(map[string]any{
		"screening_transcript": app.ScreeningTranscript,
		"screening_status":     app.ScreeningStatus,
	}).Error; err != nil {
		return err
	}

	workflow.AppendEvent(m.DB.DB, &app.ID, model.EventTranscriptReceived, map[string]any{
		"source":           "manual",
		"duration_seconds": durationSeconds,
		"transcript_chars": len(transcript),
	})

	if _, err := m.queue.Enqueue(ctx, evaluateJobName, evaluateArgs{AppID: app.ID}); err != nil {
		log.Printf("failed to enqueue evaluation for application %d: %v", app.ID, err)
		workflow.AppendEvent(m.DB.DB, &app.ID, model.EventEvaluationFailed, map[string]any{
			"error": "enqueue failed: " + err.Error(),
		})
		return nil
	}
	workflow.AppendEvent(m.DB.DB, &app.ID, model.EventEvaluationQueued, nil)
	return nil
}

// EvaluateNow runs evaluation synchronously, for the dashboard's manual
// trigger and for tests.
func (m *Manager) EvaluateNow(ctx context.Context, appID uint) (*model.Application, error) {
	if err := m.evaluate(ctx, appID); err != nil {
		return nil, err
	}
	var app model.Application
	if err := m.DB.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// evaluate runs the evaluation gateway for a stored transcript, persists the
// interview score, advances the stage to screened and finalizes the
// decision. Also the durable job handler; returned errors trigger a retry.
func (m *Manager) evaluate(ctx context.Context, appID uint) error {
	var app model.Application
	if err := m.DB.WithContext(ctx).Preload("Job").First(&app, appID).Error; err != nil {
		return err
	}
	if app.ScreeningTranscript == nil {
		return ErrNoTranscript
	}

	res, err := m.Evaluator.Evaluate(ctx, agent.EvaluateInput{
		Transcript:  *app.ScreeningTranscript,
		JobTitle:    app.Job.Title,
		MustHave:    app.Job.Skills,
		ResumeScore: app.ResumeScore,
	})
	if err != nil {
		workflow.AppendEvent(m.DB.DB, &app.ID, model.EventEvaluationFailed, map[string]any{
			"error": err.Error(),
		})
		return err
	}

	// Score columns only: stage and version are written exclusively through
	// the versioned command, so an HR transition made while the gateway was
	// in flight is never overwritten here.
	raw, _ := json.Marshal(res)
	app.InterviewScore = utilities.Ptr(res.Score)
	app.InterviewScoreJSON = utilities.Ptr(string(raw))
	if err := m.DB.WithContext(ctx).Model(&app).Updates(map[string]any{
		"interview_score":      app.InterviewScore,
		"interview_score_json": app.InterviewScoreJSON,
	}).Error; err != nil {
		return err
	}
	workflow.AppendEvent(m.DB.DB, &app.ID, model.EventEvaluated, map[string]any{
		"interview_score": res.Score,
		"recommendation":  res.Recommendation,
	})

	// Re-read the stage: the gateway call is slow and HR may have decided in
	// the meantime. A terminal stage wins over the automatic decision.
	if err := m.DB.WithContext(ctx).First(&app, appID).Error; err != nil {
		return err
	}
	if app.Stage.Terminal() {
		return nil
	}
	if app.Stage.CanAdvanceTo(model.StageScreened) {
		if _, err := m.Orchestrator.AdvanceStage(ctx, app.ID, model.StageScreened); err != nil {
			return err
		}
	}
	if _, err := m.Orchestrator.Finalize(ctx, app.ID); err != nil {
		return err
	}
	return nil
}
