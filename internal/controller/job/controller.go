// Package job provides HTTP handlers for job posting operations.
package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"hireops-backend/internal/agent"
	"hireops-backend/internal/database"
	"hireops-backend/internal/model"
	"hireops-backend/internal/utilities"
)

// Controller handles job posting endpoints.
type Controller struct {
	DB        *database.DBinstanceStruct
	Generator *agent.JobGenerator
}

// NewController creates a new instance of Controller.
func NewController(db *database.DBinstanceStruct, generator *agent.JobGenerator) *Controller {
	return &Controller{
		DB:        db,
		Generator: generator,
	}
}

// nextJobCode allocates the next JOB-YYYY-NNN code for the current year.
func nextJobCode(db *gorm.DB) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("JOB-%d-", year)

	var count int64
	if err := db.Model(&model.Job{}).Where("job_code LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

// CreateJob handles the creation of a new job posting.
// @Summary Create a job posting
// @Description Job code is generated server-side as JOB-YYYY-NNN
// @Tags Job
// @Accept json
// @Produce json
// @Param Job body model.EditableJobInfo true "Job posting fields"
// @Success 201 {object} model.Job "Successfully created job"
// @Failure 400 {object} utilities.ErrorResponse "Invalid job struct"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs [post]
func (jc *Controller) CreateJob(c *gin.Context) {

	var info model.EditableJobInfo
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&info); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if info.Title == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Job title is required"})
		return
	}
	if info.Status == "" {
		info.Status = model.JobStatusOpen
	}
	if !info.Status.Valid() {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Unknown job status %q", info.Status),
		})
		return
	}

	// Retry on code collision: two concurrent creates can count the same.
	var job model.Job
	for attempt := 0; attempt < 3; attempt++ {
		code, err := nextJobCode(jc.DB.DB)
		if err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprint("Failed to allocate job code: ", err),
			})
			return
		}

		job = model.Job{
			JobCode:     code,
			Title:       info.Title,
			Department:  info.Department,
			Location:    info.Location,
			Seniority:   info.Seniority,
			Skills:      info.Skills,
			Description: info.Description,
			Status:      info.Status,
		}
		err = jc.DB.Create(&job).Error
		if err == nil {
			c.JSON(http.StatusCreated, job)
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to create job: ", err),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
		Error: "Failed to allocate a unique job code",
	})
}

// ListJobs fetches job postings matching the query.
// @Summary List job postings
// @Description All query parameters are optional
// @Tags Job
// @Produce json
// @Param status query string false "Filter by status (open/closed/paused)"
// @Param department query string false "Filter by department, case insensitive"
// @Param search query string false "Substring match on title, case insensitive"
// @Param page query int false "Page number, 1-based"
// @Param limit query int false "Page size, default 20"
// @Success 200 {array} model.Job "Matching jobs"
// @Failure 400 {object} utilities.ErrorResponse "Invalid filter value"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs [get]
func (jc *Controller) ListJobs(c *gin.Context) {

	query := jc.DB.Model(&model.Job{})

	if rawStatus := c.Query("status"); rawStatus != "" {
		status, err := model.ParseJobStatus(rawStatus)
		if err != nil {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
			return
		}
		query = query.Where("status = ?", status)
	}
	if department := c.Query("department"); department != "" {
		query = query.Where("department ILIKE ?", "%"+department+"%")
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}

	page, limit := pagination(c)
	var jobs []model.Job
	if err := query.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&jobs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve jobs: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// GetJob fetches one job posting by ID.
// @Summary Get a job posting
// @Tags Job
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {object} model.Job "The job"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id} [get]
func (jc *Controller) GetJob(c *gin.Context) {

	var job model.Job
	if err := jc.DB.First(&job, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve job: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, job)
}

// UpdateJob applies non-empty fields from the request to a job posting.
// @Summary Update a job posting
// @Description Only non-empty fields are applied
// @Tags Job
// @Accept json
// @Produce json
// @Param id path int true "Job ID"
// @Param Job body model.EditableJobInfo true "Fields to update"
// @Success 200 {object} model.Job "Updated job"
// @Failure 400 {object} utilities.ErrorResponse "Invalid job struct"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id} [patch]
func (jc *Controller) UpdateJob(c *gin.Context) {

	var job model.Job
	if err := jc.DB.First(&job, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve job: ", err),
		})
		return
	}

	var info model.EditableJobInfo
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&info); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if info.Status != "" && !info.Status.Valid() {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Unknown job status %q", info.Status),
		})
		return
	}

	edit := model.EditableJobInfo{
		Title:       job.Title,
		Department:  job.Department,
		Location:    job.Location,
		Seniority:   job.Seniority,
		Skills:      job.Skills,
		Description: job.Description,
		Status:      job.Status,
	}
	utilities.MergeNonEmpty(&edit, &info)
	job.Title = edit.Title
	job.Department = edit.Department
	job.Location = edit.Location
	job.Seniority = edit.Seniority
	job.Skills = edit.Skills
	job.Description = edit.Description
	job.Status = edit.Status

	if err := jc.DB.Save(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to update job: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, job)
}

// DeleteJob removes a job posting that has no applications.
// @Summary Delete a job posting
// @Description Jobs with applications cannot be deleted; close them instead
// @Tags Job
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {object} utilities.MessageResponse "Job deleted"
// @Failure 404 {object} utilities.ErrorResponse "Job not found"
// @Failure 409 {object} utilities.ErrorResponse "Job has applications"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id} [delete]
func (jc *Controller) DeleteJob(c *gin.Context) {

	var job model.Job
	if err := jc.DB.First(&job, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve job: ", err),
		})
		return
	}

	if err := jc.DB.Delete(&job).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			c.JSON(http.StatusConflict, utilities.ErrorResponse{
				Error: "Job has applications and cannot be deleted; close it instead",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to delete job: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Job deleted"})
}

// GenerateRequest is the body for the job drafting endpoint.
type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// GenerateJob drafts a job posting from a short prompt without persisting it.
// @Summary Draft a job posting with the drafting agent
// @Tags Job
// @Accept json
// @Produce json
// @Param Request body GenerateRequest true "One-line role request"
// @Success 200 {object} agent.JobDraft "Draft for review"
// @Failure 400 {object} utilities.ErrorResponse "Missing prompt"
// @Failure 502 {object} utilities.ErrorResponse "Drafting agent failure"
// @Router /jobs/generate [post]
func (jc *Controller) GenerateJob(c *gin.Context) {

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	draft, err := jc.Generator.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		c.JSON(http.StatusBadGateway, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to draft job: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, draft)
}

// pagination reads page/limit query params with sane bounds.
func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
