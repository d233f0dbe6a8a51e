// Package application provides HTTP handlers for pipeline applications.
package application

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hireops-backend/internal/database"
	"hireops-backend/internal/decision"
	"hireops-backend/internal/model"
	"hireops-backend/internal/utilities"
	"hireops-backend/internal/workflow"
)

// Controller handles application endpoints.
type Controller struct {
	DB           *database.DBinstanceStruct
	Orchestrator *workflow.Orchestrator
}

// NewController creates a new instance of Controller.
func NewController(db *database.DBinstanceStruct, orch *workflow.Orchestrator) *Controller {
	return &Controller{
		DB:           db,
		Orchestrator: orch,
	}
}

// MatchRequest is the body for the explicit match endpoint.
type MatchRequest struct {
	CandidateID uint `json:"candidate_id" binding:"required"`
	JobID       uint `json:"job_id" binding:"required"`
}

// Match pairs a candidate with a job, creating a scored application.
// @Summary Match a candidate to a job
// @Description Creates the application at the matched stage and scores the resume
// @Tags Application
// @Accept json
// @Produce json
// @Param Request body MatchRequest true "Candidate and job IDs"
// @Success 201 {object} model.Application "Created application"
// @Failure 400 {object} utilities.ErrorResponse "Job is not open or IDs missing"
// @Failure 404 {object} utilities.ErrorResponse "Candidate or job not found"
// @Failure 409 {object} utilities.ErrorResponse "Candidate already applied to this job"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/match [post]
func (ac *Controller) Match(c *gin.Context) {

	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	app, err := ac.Orchestrator.Match(c.Request.Context(), req.CandidateID, req.JobID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Candidate or job not found"})
		return
	case errors.Is(err, workflow.ErrJobNotOpen):
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, workflow.ErrDuplicateApplication):
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to match: ", err),
		})
		return
	}
	c.JSON(http.StatusCreated, app)
}

// ListApplications fetches applications matching the query.
// @Summary List applications
// @Tags Application
// @Produce json
// @Param job_id query int false "Filter by job"
// @Param stage query string false "Filter by stage"
// @Param min_score query number false "Minimum resume score"
// @Param max_score query number false "Maximum resume score"
// @Param search query string false "Substring match on candidate name, case insensitive"
// @Param sort query string false "Sort order: score_desc, score_asc or newest (default)"
// @Param page query int false "Page number, 1-based"
// @Param limit query int false "Page size, default 20"
// @Success 200 {array} model.Application "Matching applications"
// @Failure 400 {object} utilities.ErrorResponse "Invalid filter value"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications [get]
func (ac *Controller) ListApplications(c *gin.Context) {

	query := ac.DB.Model(&model.Application{}).Preload("Candidate").Preload("Job")

	if rawJob := c.Query("job_id"); rawJob != "" {
		jobID, err := strconv.ParseUint(rawJob, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid job_id"})
			return
		}
		query = query.Where("job_id = ?", jobID)
	}
	if rawStage := c.Query("stage"); rawStage != "" {
		stage, err := model.ParseStage(rawStage)
		if err != nil {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
			return
		}
		query = query.Where("stage = ?", stage)
	}
	if rawMin := c.Query("min_score"); rawMin != "" {
		min, err := strconv.ParseFloat(rawMin, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid min_score"})
			return
		}
		query = query.Where("resume_score >= ?", min)
	}
	if rawMax := c.Query("max_score"); rawMax != "" {
		max, err := strconv.ParseFloat(rawMax, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid max_score"})
			return
		}
		query = query.Where("resume_score <= ?", max)
	}
	if search := c.Query("search"); search != "" {
		query = query.Joins("JOIN candidates ON candidates.id = applications.candidate_id").
			Where("candidates.name ILIKE ?", "%"+search+"%")
	}

	switch c.Query("sort") {
	case "score_desc":
		query = query.Order("resume_score DESC NULLS LAST")
	case "score_asc":
		query = query.Order("resume_score ASC NULLS LAST")
	default:
		query = query.Order("applications.id DESC")
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var apps []model.Application
	if err := query.Offset((page - 1) * limit).Limit(limit).Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve applications: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, apps)
}

// GetApplication fetches one application with its candidate, job and events.
// @Summary Get an application
// @Tags Application
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} model.Application "The application"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id} [get]
func (ac *Controller) GetApplication(c *gin.Context) {

	var app model.Application
	err := ac.DB.Preload("Candidate").Preload("Job").Preload("Events").Preload("InterviewLinks").
		First(&app, c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve application: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, app)
}

// StageRequest is the body for stage commands. Version is the version the
// client last read; a stale version is rejected with 409.
type StageRequest struct {
	Stage   string `json:"stage" binding:"required"`
	Version *uint  `json:"version" binding:"required"`
}

// ChangeStage moves an application to a new stage.
// @Summary Change an application's stage
// @Description Manual HR command; carries the optimistic concurrency version
// @Tags Application
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param Request body StageRequest true "Target stage and version"
// @Success 200 {object} model.Application "Updated application"
// @Failure 400 {object} utilities.ErrorResponse "Unknown stage"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Version conflict"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/stage [patch]
func (ac *Controller) ChangeStage(c *gin.Context) {

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid application id"})
		return
	}

	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	stage, err := model.ParseStage(req.Stage)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	app, err := ac.Orchestrator.ChangeStage(c.Request.Context(), uint(id), stage, *req.Version, true)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
		return
	case errors.Is(err, workflow.ErrVersionConflict):
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, workflow.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to change stage: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, app)
}

// BulkStageRequest moves several applications at once. Per-application
// versions keep the concurrency guarantee.
type BulkStageRequest struct {
	Stage        string          `json:"stage" binding:"required"`
	Applications []BulkStageItem `json:"applications" binding:"required"`
}

// BulkStageItem is one application in a bulk stage command.
type BulkStageItem struct {
	ID      uint `json:"id"`
	Version uint `json:"version"`
}

// BulkStageResult reports one application's outcome in a bulk command.
type BulkStageResult struct {
	ID    uint   `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BulkChangeStage applies one stage to several applications.
// @Summary Change stage for several applications
// @Description Applies per-application version checks; partial success is reported per item
// @Tags Application
// @Accept json
// @Produce json
// @Param Request body BulkStageRequest true "Target stage and applications"
// @Success 200 {array} BulkStageResult "Per-application outcomes"
// @Failure 400 {object} utilities.ErrorResponse "Unknown stage"
// @Router /applications/bulk-stage [post]
func (ac *Controller) BulkChangeStage(c *gin.Context) {

	var req BulkStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	stage, err := model.ParseStage(req.Stage)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	results := make([]BulkStageResult, 0, len(req.Applications))
	for _, item := range req.Applications {
		_, err := ac.Orchestrator.ChangeStage(c.Request.Context(), item.ID, stage, item.Version, true)
		res := BulkStageResult{ID: item.ID, OK: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	c.JSON(http.StatusOK, results)
}

// RetryScore re-runs resume scoring for an application.
// @Summary Retry resume scoring
// @Description Bounded by the application's attempt budget
// @Tags Application
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} model.Application "Application after the attempt"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Attempt budget exhausted"
// @Failure 502 {object} utilities.ErrorResponse "Scoring gateway failure"
// @Router /applications/{id}/retry-score [post]
func (ac *Controller) RetryScore(c *gin.Context) {

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid application id"})
		return
	}

	app, err := ac.Orchestrator.RetryScore(c.Request.Context(), uint(id))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
		return
	case errors.Is(err, workflow.ErrScoreAttemptsExhausted):
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, utilities.ErrorResponse{
			Error: fmt.Sprint("Scoring failed: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, app)
}

// Finalize runs the decision engine for an application.
// @Summary Finalize an application's decision
// @Description Requires both resume and interview scores
// @Tags Application
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} model.Application "Application with final decision"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Scores incomplete or version conflict"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/finalize [post]
func (ac *Controller) Finalize(c *gin.Context) {

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid application id"})
		return
	}

	app, err := ac.Orchestrator.Finalize(c.Request.Context(), uint(id))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
		return
	case err != nil && errors.Is(err, workflow.ErrVersionConflict):
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: err.Error()})
		return
	case err != nil && errors.Is(err, decision.ErrIncompleteScores):
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to finalize: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, app)
}

// NotesRequest is the body for the application notes endpoint.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// UpdateNotes replaces the application's notes.
// @Summary Update application notes
// @Tags Application
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param Request body NotesRequest true "Notes"
// @Success 200 {object} model.Application "Updated application"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/notes [patch]
func (ac *Controller) UpdateNotes(c *gin.Context) {

	var app model.Application
	if err := ac.DB.First(&app, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve application: ", err),
		})
		return
	}

	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	app.Notes = req.Notes
	if err := ac.DB.Model(&app).Update("notes", req.Notes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to update application: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, app)
}
