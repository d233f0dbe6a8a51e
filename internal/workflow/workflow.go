// Package workflow orchestrates the hiring pipeline: email classification,
// candidate creation, job matching, resume scoring, stage transitions and the
// final decision. All stage mutations go through versioned commands so
// concurrent writers surface as conflicts instead of lost updates.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"hireops-backend/internal/agent"
	"hireops-backend/internal/database"
	"hireops-backend/internal/decision"
	"hireops-backend/internal/model"
	"hireops-backend/internal/resume"
	"hireops-backend/internal/utilities"
)

// Sentinel errors mapped to HTTP statuses at the controller boundary.
var (
	ErrVersionConflict        = errors.New("application was modified by another request")
	ErrDuplicateApplication   = errors.New("candidate already has an application for this job")
	ErrJobNotOpen             = errors.New("job is not open for applications")
	ErrInvalidTransition      = errors.New("stage transition not allowed")
	ErrScoreAttemptsExhausted = errors.New("scoring attempt limit reached")
)

const uniqueViolation = "23505"

// Orchestrator drives the pipeline. It owns no state beyond its dependencies.
type Orchestrator struct {
	DB         *database.DBinstanceStruct
	Classifier *agent.Classifier
	Scorer     *agent.Scorer
	Thresholds decision.Thresholds
}

// NewOrchestrator wires the orchestrator with its gateways and the
// deployment decision thresholds.
func NewOrchestrator(db *database.DBinstanceStruct, classifier *agent.Classifier, scorer *agent.Scorer) *Orchestrator {
	return &Orchestrator{
		DB:         db,
		Classifier: classifier,
		Scorer:     scorer,
		Thresholds: decision.DefaultThresholds(),
	}
}

// AppendEvent writes one append-only audit record. Event writes are
// best-effort: a failed audit insert is logged, never propagated.
func AppendEvent(db *gorm.DB, appID *uint, eventType string, payload map[string]any) {
	body := "{}"
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			body = string(raw)
		}
	}
	ev := model.Event{AppID: appID, EventType: eventType, Payload: body}
	if err := db.Create(&ev).Error; err != nil {
		log.Printf("failed to append %s event: %v", eventType, err)
	}
}

// ClassifyEmail runs the classification gateway for one email and persists
// the result on the row. Already-classified emails are returned as-is.
// Gateway failures leave the email untouched apart from an audit event, so
// inbox listing is never blocked.
func (o *Orchestrator) ClassifyEmail(ctx context.Context, emailID uint) (*model.Email, error) {
	var email model.Email
	if err := o.DB.WithContext(ctx).First(&email, emailID).Error; err != nil {
		return nil, err
	}
	if email.ClassifiedAs != nil {
		return &email, nil
	}

	body := email.BodySnippet
	if body == "" {
		body = email.BodyFull
	}
	res, err := o.Classifier.Classify(ctx, agent.ClassifyInput{
		Subject:         email.Subject,
		FromName:        email.FromName,
		FromEmail:       email.FromAddress,
		AttachmentNames: email.Attachments,
		BodyText:        body,
	})
	if err != nil {
		log.Printf("classification failed for email %d: %v", emailID, err)
		AppendEvent(o.DB.DB, nil, model.EventClassificationFailed, map[string]any{
			"email_id": email.ID,
			"error":    err.Error(),
		})
		return &email, nil
	}

	raw, _ := json.Marshal(res)
	email.ClassifiedAs = utilities.Ptr(res.Category)
	email.Confidence = utilities.Ptr(res.Confidence)
	email.ClassificationJSON = utilities.Ptr(string(raw))
	if email.Processed < model.EmailProcessedClassified {
		email.Processed = model.EmailProcessedClassified
	}
	if err := o.DB.WithContext(ctx).Save(&email).Error; err != nil {
		return nil, err
	}
	return &email, nil
}

// WorkflowResult summarizes one RunEmailWorkflow invocation.
type WorkflowResult struct {
	EmailID        uint    `json:"email_id"`
	Category       string  `json:"category"`
	CandidateID    *uint   `json:"candidate_id"`
	ApplicationIDs []uint  `json:"application_ids"`
	MatchedJobIDs  []uint  `json:"matched_job_ids"`
	Skipped        bool    `json:"skipped"`
	Reason         string  `json:"reason,omitempty"`
}

// RunEmailWorkflow processes one email end to end: classify, create the
// candidate, match against open jobs and score the resume for each match.
// The Processed marker makes the whole flow idempotent per email.
func (o *Orchestrator) RunEmailWorkflow(ctx context.Context, emailID uint) (*WorkflowResult, error) {
	email, err := o.ClassifyEmail(ctx, emailID)
	if err != nil {
		return nil, err
	}

	result := &WorkflowResult{EmailID: email.ID}
	if email.ClassifiedAs == nil {
		result.Category = model.CategoryUnknown
		result.Skipped = true
		result.Reason = "classification unavailable"
		return result, nil
	}
	result.Category = *email.ClassifiedAs

	if email.Processed >= model.EmailProcessedCandidateCreated {
		result.Skipped = true
		result.Reason = "already processed"
		return result, nil
	}
	if *email.ClassifiedAs != model.CategoryCandidateApplication {
		result.Skipped = true
		result.Reason = "not a candidate application"
		return result, nil
	}

	candidate, err := o.CandidateFromEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	result.CandidateID = &candidate.ID

	jobs, err := o.matchOpenJobs(ctx, candidate, email)
	if err != nil {
		return nil, err
	}

	for _, job := range jobs {
		result.MatchedJobIDs = append(result.MatchedJobIDs, job.ID)

		app, err := o.createScoredApplication(ctx, candidate, &job, model.EventAutoWorkflowMatched)
		if errors.Is(err, ErrDuplicateApplication) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result.ApplicationIDs = append(result.ApplicationIDs, app.ID)
	}

	email.Processed = model.EmailProcessedCandidateCreated
	if err := o.DB.WithContext(ctx).Save(email).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// RunPendingEmailWorkflows runs the email workflow for every email that has
// not produced a candidate yet. Per-email failures are logged and skipped so
// one bad email cannot stall the batch.
func (o *Orchestrator) RunPendingEmailWorkflows(ctx context.Context) ([]WorkflowResult, error) {
	var emails []model.Email
	if err := o.DB.WithContext(ctx).
		Where("processed < ?", model.EmailProcessedCandidateCreated).
		Order("id ASC").
		Find(&emails).Error; err != nil {
		return nil, err
	}

	results := make([]WorkflowResult, 0, len(emails))
	for _, email := range emails {
		res, err := o.RunEmailWorkflow(ctx, email.ID)
		if err != nil {
			log.Printf("email workflow failed for email %d: %v", email.ID, err)
			results = append(results, WorkflowResult{
				EmailID:  email.ID,
				Category: model.CategoryUnknown,
				Skipped:  true,
				Reason:   err.Error(),
			})
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

// CandidateFromEmail finds or creates the candidate backing an application
// email. Reusing the SourceEmailID link keeps repeated runs idempotent.
func (o *Orchestrator) CandidateFromEmail(ctx context.Context, email *model.Email) (*model.Candidate, error) {
	var existing model.Candidate
	err := o.DB.WithContext(ctx).Where("source_email_id = ?", email.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	contact := resume.ParseContact(email.BodyFull)

	name := email.FromName
	if name == "" && email.ClassificationJSON != nil {
		var cls agent.ClassifyResult
		if json.Unmarshal([]byte(*email.ClassificationJSON), &cls) == nil {
			name = cls.DetectedName
		}
	}
	if name == "" {
		name = contact.Name
	}
	if name == "" {
		name = email.FromAddress
	}

	var filename string
	if len(email.Attachments) > 0 {
		filename = email.Attachments[0]
	}

	candidate := model.Candidate{
		Name:           name,
		Email:          email.FromAddress,
		Phone:          contact.Phone,
		ResumeText:     email.BodyFull,
		ResumeFilename: filename,
		SourceEmailID:  &email.ID,
	}
	if err := o.DB.WithContext(ctx).Create(&candidate).Error; err != nil {
		return nil, err
	}
	return &candidate, nil
}

const maxAutoMatches = 3

// matchOpenJobs ranks open jobs against the candidate by keyword overlap and
// returns at most the top three with a non-zero score.
func (o *Orchestrator) matchOpenJobs(ctx context.Context, candidate *model.Candidate, email *model.Email) ([]model.Job, error) {
	var jobs []model.Job
	if err := o.DB.WithContext(ctx).Where("status = ?", model.JobStatusOpen).Find(&jobs).Error; err != nil {
		return nil, err
	}

	text := strings.ToLower(candidate.ResumeText + " " + email.Subject)

	type ranked struct {
		job   model.Job
		score int
	}
	var matches []ranked
	for _, job := range jobs {
		score := 0
		for _, skill := range job.Skills {
			if strings.Contains(text, strings.ToLower(skill)) {
				score += 2
			}
		}
		for _, word := range strings.Fields(strings.ToLower(job.Title)) {
			if len(word) > 3 && strings.Contains(text, word) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, ranked{job: job, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > maxAutoMatches {
		matches = matches[:maxAutoMatches]
	}

	out := make([]model.Job, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.job)
	}
	return out, nil
}

// Match creates an application for an explicit HR pairing of candidate and
// job, then scores the resume. A scoring failure still leaves a valid
// application at the matched stage with a nil score.
func (o *Orchestrator) Match(ctx context.Context, candidateID, jobID uint) (*model.Application, error) {
	var candidate model.Candidate
	if err := o.DB.WithContext(ctx).First(&candidate, candidateID).Error; err != nil {
		return nil, err
	}
	var job model.Job
	if err := o.DB.WithContext(ctx).First(&job, jobID).Error; err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusOpen {
		return nil, ErrJobNotOpen
	}
	return o.createScoredApplication(ctx, &candidate, &job, model.EventMatched)
}

// createScoredApplication inserts the application row at the matched stage
// and runs one scoring attempt against it.
func (o *Orchestrator) createScoredApplication(ctx context.Context, candidate *model.Candidate, job *model.Job, matchEvent string) (*model.Application, error) {
	app := model.Application{
		CandidateID:      candidate.ID,
		JobID:            job.ID,
		Stage:            model.StageMatched,
		ScoreMaxAttempts: model.DefaultScoreMaxAttempts,
	}
	if err := o.DB.WithContext(ctx).Create(&app).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateApplication
		}
		return nil, err
	}

	AppendEvent(o.DB.DB, &app.ID, matchEvent, map[string]any{
		"candidate_id": candidate.ID,
		"job_id":       job.ID,
	})

	if err := o.scoreApplication(ctx, &app, candidate, job); err != nil {
		log.Printf("resume scoring failed for application %d: %v", app.ID, err)
	}
	return &app, nil
}

// scoreApplication runs one scoring attempt and persists the outcome. On
// gateway failure the application keeps a nil score and the attempt is
// recorded for the retry budget.
func (o *Orchestrator) scoreApplication(ctx context.Context, app *model.Application, candidate *model.Candidate, job *model.Job) error {
	now := time.Now()
	app.ScoreAttempts++
	app.LastScoreAt = &now

	res, err := o.Scorer.Score(ctx, agent.ScoreInput{
		ResumeText:     candidate.ResumeText,
		JobTitle:       job.Title,
		JobDescription: job.Description,
		MustHave:       job.Skills,
	})
	// Score columns only: stage and version are written exclusively through
	// the versioned command, so an HR transition made while the gateway was
	// in flight is never overwritten here.
	if err != nil {
		saveErr := o.DB.WithContext(ctx).Model(app).Updates(map[string]any{
			"score_attempts": app.ScoreAttempts,
			"last_score_at":  app.LastScoreAt,
		}).Error
		if saveErr != nil {
			return saveErr
		}
		AppendEvent(o.DB.DB, &app.ID, model.EventScoringFailed, map[string]any{
			"attempt": app.ScoreAttempts,
			"error":   err.Error(),
		})
		return err
	}

	raw, _ := json.Marshal(res)
	snippets, _ := json.Marshal(res.MatchedSkills)
	app.ResumeScore = utilities.Ptr(res.Score)
	app.ResumeScoreJSON = utilities.Ptr(string(raw))
	app.AISnippetsJSON = utilities.Ptr(string(snippets))
	app.AINextAction = utilities.Ptr(nextActionFor(res.Recommendation))
	if err := o.DB.WithContext(ctx).Model(app).Updates(map[string]any{
		"score_attempts":    app.ScoreAttempts,
		"last_score_at":     app.LastScoreAt,
		"resume_score":      app.ResumeScore,
		"resume_score_json": app.ResumeScoreJSON,
		"ai_snippets_json":  app.AISnippetsJSON,
		"ai_next_action":    app.AINextAction,
	}).Error; err != nil {
		return err
	}
	return nil
}

func nextActionFor(rec model.Recommendation) string {
	switch rec {
	case model.RecommendationAdvance:
		return "Schedule a screening interview"
	case model.RecommendationReject:
		return "Send a rejection email"
	default:
		return "Review the resume manually"
	}
}

// RetryScore re-runs resume scoring for an application whose previous
// attempts failed, bounded by the application's attempt budget.
func (o *Orchestrator) RetryScore(ctx context.Context, appID uint) (*model.Application, error) {
	var app model.Application
	if err := o.DB.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, err
	}
	if app.ScoreAttempts >= app.ScoreMaxAttempts {
		return nil, ErrScoreAttemptsExhausted
	}

	var candidate model.Candidate
	if err := o.DB.WithContext(ctx).First(&candidate, app.CandidateID).Error; err != nil {
		return nil, err
	}
	var job model.Job
	if err := o.DB.WithContext(ctx).First(&job, app.JobID).Error; err != nil {
		return nil, err
	}

	if err := o.scoreApplication(ctx, &app, &candidate, &job); err != nil {
		return &app, fmt.Errorf("scoring retry failed: %w", err)
	}
	AppendEvent(o.DB.DB, &app.ID, model.EventScoringRetried, map[string]any{
		"attempt": app.ScoreAttempts,
		"score":   app.ResumeScore,
	})
	return &app, nil
}

// ChangeStage moves an application to a new stage with an optimistic
// concurrency check. The caller supplies the version it last read; a
// concurrent writer makes the command fail with ErrVersionConflict.
//
// Manual commands may move to any valid stage, including re-staging out of a
// terminal state. Automatic transitions only move forward along the funnel.
func (o *Orchestrator) ChangeStage(ctx context.Context, appID uint, to model.Stage, version uint, manual bool) (*model.Application, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, to)
	}

	var app model.Application
	if err := o.DB.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, err
	}
	if !manual && !app.Stage.CanAdvanceTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, app.Stage, to)
	}

	res := o.DB.WithContext(ctx).Model(&model.Application{}).
		Where("id = ? AND version = ?", appID, version).
		Updates(map[string]any{
			"stage":   to,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		AppendEvent(o.DB.DB, &app.ID, model.EventStageConflict, map[string]any{
			"requested_stage":   to,
			"requested_version": version,
		})
		return nil, ErrVersionConflict
	}

	from := app.Stage
	if err := o.DB.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, err
	}
	AppendEvent(o.DB.DB, &app.ID, model.EventStageChanged, map[string]any{
		"from":   from,
		"to":     to,
		"manual": manual,
	})
	return &app, nil
}

// AdvanceStage is the orchestrator's own forward transition: it reads the
// current version and issues a versioned command with it.
func (o *Orchestrator) AdvanceStage(ctx context.Context, appID uint, to model.Stage) (*model.Application, error) {
	var app model.Application
	if err := o.DB.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, err
	}
	return o.ChangeStage(ctx, appID, to, app.Version, false)
}

// Finalize runs the decision engine once both scores are present, persists
// the outcome and advances the stage accordingly. A hold keeps the
// application at screened for human review.
func (o *Orchestrator) Finalize(ctx context.Context, appID uint) (*model.Application, error) {
	var app model.Application
	if err := o.DB.WithContext(ctx).First(&app, appID).Error; err != nil {
		return nil, err
	}

	res, err := decision.Decide(app.ResumeScore, app.InterviewScore, o.Thresholds)
	if err != nil {
		return nil, err
	}

	app.FinalScore = utilities.Ptr(res.FinalScore)
	app.Recommendation = utilities.Ptr(res.Recommendation)
	if err := o.DB.WithContext(ctx).Model(&app).Updates(map[string]any{
		"final_score":    app.FinalScore,
		"recommendation": app.Recommendation,
	}).Error; err != nil {
		return nil, err
	}

	AppendEvent(o.DB.DB, &app.ID, model.EventDecision, map[string]any{
		"resume_score":    app.ResumeScore,
		"interview_score": app.InterviewScore,
		"final_score":     res.FinalScore,
		"recommendation":  res.Recommendation,
	})

	switch res.Recommendation {
	case model.RecommendationAdvance:
		return o.ChangeStage(ctx, app.ID, model.StageShortlisted, app.Version, false)
	case model.RecommendationReject:
		return o.ChangeStage(ctx, app.ID, model.StageRejected, app.Version, false)
	default:
		return &app, nil
	}
}
