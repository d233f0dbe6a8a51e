package application

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hireops-backend/internal/model"
	"hireops-backend/internal/utilities"
)

// csvHeader is the fixed export column order. Spreadsheet templates on the
// HR side depend on it, so it never changes without coordination.
var csvHeader = []string{
	"application_id", "candidate_name", "candidate_email", "job_code",
	"job_title", "stage", "resume_score", "interview_score", "final_score",
	"recommendation", "created_at",
}

// ExportCSV streams the application pipeline as CSV.
// @Summary Export applications as CSV
// @Tags Application
// @Produce text/csv
// @Param job_id query int false "Filter by job"
// @Param stage query string false "Filter by stage"
// @Success 200 {string} string "CSV body"
// @Failure 400 {object} utilities.ErrorResponse "Invalid filter value"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/export [get]
func (ac *Controller) ExportCSV(c *gin.Context) {

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

	var apps []model.Application
	if err := query.Order("id ASC").Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve applications: ", err),
		})
		return
	}

	filename := fmt.Sprintf("applications-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	w := csv.NewWriter(c.Writer)
	_ = w.Write(csvHeader)
	for _, app := range apps {
		_ = w.Write([]string{
			strconv.FormatUint(uint64(app.ID), 10),
			app.Candidate.Name,
			app.Candidate.Email,
			app.Job.JobCode,
			app.Job.Title,
			string(app.Stage),
			formatScore(app.ResumeScore),
			formatScore(app.InterviewScore),
			formatScore(app.FinalScore),
			formatRecommendation(app.Recommendation),
			app.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
}

func formatScore(s *float64) string {
	if s == nil {
		return ""
	}
	return strconv.FormatFloat(*s, 'f', 1, 64)
}

func formatRecommendation(r *model.Recommendation) string {
	if r == nil {
		return ""
	}
	return string(*r)
}
