// Package inbox provides HTTP handlers for the shared hiring inbox.
package inbox

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hireops-backend/internal/database"
	"hireops-backend/internal/model"
	"hireops-backend/internal/utilities"
	"hireops-backend/internal/workflow"
)

// Controller handles inbox endpoints.
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

// ConnectResponse reports the inbox state after connecting.
type ConnectResponse struct {
	Connected bool  `json:"connected"`
	Total     int64 `json:"total"`
	Loaded    int   `json:"loaded"`
}

// Connect initializes the inbox. Mail transport is out of scope, so connect
// loads the bundled sample mailbox when the inbox is empty.
// @Summary Connect the inbox
// @Tags Inbox
// @Produce json
// @Success 200 {object} ConnectResponse "Inbox state"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /inbox/connect [post]
func (ic *Controller) Connect(c *gin.Context) {

	var total int64
	if err := ic.DB.Model(&model.Email{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to count emails: ", err),
		})
		return
	}

	loaded := 0
	if total == 0 {
		emails := SampleEmails()
		if err := ic.DB.Create(&emails).Error; err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprint("Failed to load sample inbox: ", err),
			})
			return
		}
		loaded = len(emails)
		total = int64(loaded)
	}

	c.JSON(http.StatusOK, ConnectResponse{Connected: true, Total: total, Loaded: loaded})
}

// SyncResponse reports inbox counters after a sync.
type SyncResponse struct {
	Total        int64 `json:"total"`
	Unclassified int64 `json:"unclassified"`
	Unprocessed  int64 `json:"unprocessed"`
}

// Sync refreshes inbox counters. With the sample mailbox there is no remote
// source to pull from, so sync reports current state.
// @Summary Sync the inbox
// @Tags Inbox
// @Produce json
// @Success 200 {object} SyncResponse "Inbox counters"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /inbox/sync [post]
func (ic *Controller) Sync(c *gin.Context) {

	var resp SyncResponse
	if err := ic.DB.Model(&model.Email{}).Count(&resp.Total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to count emails: ", err),
		})
		return
	}
	if err := ic.DB.Model(&model.Email{}).Where("classified_as IS NULL").Count(&resp.Unclassified).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to count emails: ", err),
		})
		return
	}
	if err := ic.DB.Model(&model.Email{}).
		Where("processed < ?", model.EmailProcessedCandidateCreated).
		Count(&resp.Unprocessed).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to count emails: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListEmails fetches inbox emails matching the query.
// @Summary List inbox emails
// @Tags Inbox
// @Produce json
// @Param category query string false "Filter by classification (candidate_application/general/unknown)"
// @Param unclassified query boolean false "Only emails the classifier has not seen"
// @Param page query int false "Page number, 1-based"
// @Param limit query int false "Page size, default 20"
// @Success 200 {array} model.Email "Matching emails"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /inbox/emails [get]
func (ic *Controller) ListEmails(c *gin.Context) {

	query := ic.DB.Model(&model.Email{})
	if category := c.Query("category"); category != "" {
		query = query.Where("classified_as = ?", category)
	}
	if unclassified, _ := strconv.ParseBool(c.Query("unclassified")); unclassified {
		query = query.Where("classified_as IS NULL")
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var emails []model.Email
	if err := query.Order("received_at DESC NULLS LAST, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&emails).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve emails: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, emails)
}

// EmailDetail is the single-email response including the full body.
type EmailDetail struct {
	model.Email
	BodyFull string `json:"body_full"`
}

// GetEmail fetches one email including its full body.
// @Summary Get an inbox email
// @Tags Inbox
// @Produce json
// @Param id path int true "Email ID"
// @Success 200 {object} EmailDetail "The email"
// @Failure 404 {object} utilities.ErrorResponse "Email not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /inbox/emails/{id} [get]
func (ic *Controller) GetEmail(c *gin.Context) {

	var email model.Email
	if err := ic.DB.First(&email, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve email: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, EmailDetail{Email: email, BodyFull: email.BodyFull})
}

// ClassifyEmail runs classification for one email.
// @Summary Classify an inbox email
// @Description Already-classified emails are returned unchanged
// @Tags Inbox
// @Produce json
// @Param id path int true "Email ID"
// @Success 200 {object} model.Email "Classified email"
// @Failure 404 {object} utilities.ErrorResponse "Email not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /inbox/emails/{id}/classify [post]
func (ic *Controller) ClassifyEmail(c *gin.Context) {

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid email id"})
		return
	}

	email, err := ic.Orchestrator.ClassifyEmail(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to classify email: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, email)
}

// ClassifyAll runs classification for every unclassified email.
// @Summary Classify all unclassified emails
// @Tags Inbox
// @Produce json
// @Success 200 {array} model.Email "Emails after classification"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /inbox/classify-all [post]
func (ic *Controller) ClassifyAll(c *gin.Context) {

	var pending []model.Email
	if err := ic.DB.Where("classified_as IS NULL").Order("id ASC").Find(&pending).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve emails: ", err),
		})
		return
	}

	results := make([]model.Email, 0, len(pending))
	for _, email := range pending {
		classified, err := ic.Orchestrator.ClassifyEmail(c.Request.Context(), email.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprint("Failed to classify email: ", err),
			})
			return
		}
		results = append(results, *classified)
	}
	c.JSON(http.StatusOK, results)
}

// RunWorkflow runs the full email workflow for one email.
// @Summary Run the hiring workflow for one email
// @Description Classifies, creates the candidate and matches open jobs
// @Tags Inbox
// @Produce json
// @Param id path int true "Email ID"
// @Success 200 {object} workflow.WorkflowResult "Workflow outcome"
// @Failure 404 {object} utilities.ErrorResponse "Email not found"
// @Failure 500 {object} utilities.ErrorResponse "Workflow error"
// @Router /inbox/emails/{id}/workflow [post]
func (ic *Controller) RunWorkflow(c *gin.Context) {

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid email id"})
		return
	}

	result, err := ic.Orchestrator.RunEmailWorkflow(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to run workflow: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// RunAllWorkflows runs the email workflow for every unprocessed email.
// @Summary Run the hiring workflow for all pending emails
// @Tags Inbox
// @Produce json
// @Success 200 {array} workflow.WorkflowResult "Per-email outcomes"
// @Failure 500 {object} utilities.ErrorResponse "Workflow error"
// @Router /inbox/workflow/run [post]
func (ic *Controller) RunAllWorkflows(c *gin.Context) {

	results, err := ic.Orchestrator.RunPendingEmailWorkflows(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to run workflows: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, results)
}
