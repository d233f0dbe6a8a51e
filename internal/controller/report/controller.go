// Package report provides HTTP handlers for pipeline reporting.
package report

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hireops-backend/internal/database"
	"hireops-backend/internal/model"
	"hireops-backend/internal/utilities"
)

// Controller handles reporting endpoints.
type Controller struct {
	DB *database.DBinstanceStruct
}

// NewController creates a new instance of Controller.
func NewController(db *database.DBinstanceStruct) *Controller {
	return &Controller{
		DB: db,
	}
}

// FunnelEntry is one stage's count in the funnel report.
type FunnelEntry struct {
	Stage model.Stage `json:"stage"`
	Count int64       `json:"count"`
}

// Funnel reports application counts per pipeline stage.
// @Summary Pipeline funnel
// @Description Counts per stage in funnel order, optionally for one job
// @Tags Report
// @Produce json
// @Param job_id query int false "Restrict to one job"
// @Success 200 {array} FunnelEntry "Counts in funnel order"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /reports/funnel [get]
func (rc *Controller) Funnel(c *gin.Context) {

	type row struct {
		Stage model.Stage
		Count int64
	}

	query := rc.DB.Model(&model.Application{}).Select("stage, COUNT(*) AS count").Group("stage")
	if rawJob := c.Query("job_id"); rawJob != "" {
		jobID, err := strconv.ParseUint(rawJob, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid job_id"})
			return
		}
		query = query.Where("job_id = ?", jobID)
	}

	var rows []row
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to build funnel: ", err),
		})
		return
	}

	counts := make(map[model.Stage]int64, len(rows))
	for _, r := range rows {
		counts[r.Stage] = r.Count
	}

	funnel := make([]FunnelEntry, 0, len(model.PipelineStages))
	for _, stage := range model.PipelineStages {
		funnel = append(funnel, FunnelEntry{Stage: stage, Count: counts[stage]})
	}
	c.JSON(http.StatusOK, funnel)
}

// TopCandidates reports the highest-scoring applications.
// @Summary Top candidates by score
// @Description Ordered by final score when present, resume score otherwise
// @Tags Report
// @Produce json
// @Param job_id query int false "Restrict to one job"
// @Param limit query int false "Number of entries, default 10"
// @Success 200 {array} model.Application "Top applications"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /reports/top-candidates [get]
func (rc *Controller) TopCandidates(c *gin.Context) {

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := rc.DB.Model(&model.Application{}).Preload("Candidate").Preload("Job").
		Where("resume_score IS NOT NULL OR final_score IS NOT NULL")
	if rawJob := c.Query("job_id"); rawJob != "" {
		jobID, err := strconv.ParseUint(rawJob, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid job_id"})
			return
		}
		query = query.Where("job_id = ?", jobID)
	}

	var apps []model.Application
	if err := query.Order("COALESCE(final_score, resume_score) DESC").Limit(limit).Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve top candidates: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, apps)
}

// Summary is the dashboard headline numbers.
type Summary struct {
	OpenJobs        int64 `json:"open_jobs"`
	Candidates      int64 `json:"candidates"`
	Applications    int64 `json:"applications"`
	Shortlisted     int64 `json:"shortlisted"`
	Rejected        int64 `json:"rejected"`
	PendingEmails   int64 `json:"pending_emails"`
	AwaitingScreens int64 `json:"awaiting_screens"`
}

// GetSummary reports the dashboard headline numbers.
// @Summary Pipeline summary
// @Tags Report
// @Produce json
// @Success 200 {object} Summary "Headline counts"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /reports/summary [get]
func (rc *Controller) GetSummary(c *gin.Context) {

	var s Summary
	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&s.OpenJobs, rc.DB.Model(&model.Job{}).Where("status = ?", model.JobStatusOpen)},
		{&s.Candidates, rc.DB.Model(&model.Candidate{})},
		{&s.Applications, rc.DB.Model(&model.Application{})},
		{&s.Shortlisted, rc.DB.Model(&model.Application{}).Where("stage = ?", model.StageShortlisted)},
		{&s.Rejected, rc.DB.Model(&model.Application{}).Where("stage = ?", model.StageRejected)},
		{&s.PendingEmails, rc.DB.Model(&model.Email{}).Where("processed < ?", model.EmailProcessedCandidateCreated)},
		{&s.AwaitingScreens, rc.DB.Model(&model.Application{}).Where("stage = ?", model.StageScreeningScheduled)},
	}
	for _, count := range counts {
		if err := count.query.Count(count.dest).Error; err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprint("Failed to build summary: ", err),
			})
			return
		}
	}
	c.JSON(http.StatusOK, s)
}

// Activity reports the most recent pipeline events.
// @Summary Recent pipeline activity
// @Tags Report
// @Produce json
// @Param limit query int false "Number of events, default 50"
// @Success 200 {array} model.Event "Events, newest first"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /reports/activity [get]
func (rc *Controller) Activity(c *gin.Context) {

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	var events []model.Event
	if err := rc.DB.Order("id DESC").Limit(limit).Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve activity: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, events)
}
