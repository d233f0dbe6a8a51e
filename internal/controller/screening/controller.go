// Package screening provides HTTP handlers for interview links: the HR
// dashboard endpoints and the public, token-authenticated interview
// endpoints.
package screening

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hireops-backend/internal/database"
	"hireops-backend/internal/decision"
	"hireops-backend/internal/model"
	screeningsvc "hireops-backend/internal/screening"
	"hireops-backend/internal/utilities"
)

// Controller handles interview link endpoints.
type Controller struct {
	DB      *database.DBinstanceStruct
	Manager *screeningsvc.Manager
}

// NewController creates a new instance of Controller.
func NewController(db *database.DBinstanceStruct, manager *screeningsvc.Manager) *Controller {
	return &Controller{
		DB:      db,
		Manager: manager,
	}
}

// IssueRequest is the body for link issuing endpoints.
type IssueRequest struct {
	TTLHours int `json:"ttl_hours"`
}

func (r IssueRequest) ttl() time.Duration {
	if r.TTLHours <= 0 {
		return screeningsvc.DefaultLinkTTL
	}
	return time.Duration(r.TTLHours) * time.Hour
}

// GenerateLink issues a new interview link for an application.
// @Summary Generate an interview link
// @Description Fails if an active link already exists; use regenerate to replace it
// @Tags Screening
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param Request body IssueRequest false "Link time-to-live in hours, default 72"
// @Success 201 {object} model.InterviewLink "Issued link"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Active link already exists"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/interview-link [post]
func (sc *Controller) GenerateLink(c *gin.Context) {

	appID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid application id"})
		return
	}

	var req IssueRequest
	_ = c.ShouldBindJSON(&req)

	link, err := sc.Manager.Issue(c.Request.Context(), uint(appID), req.ttl())
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
		return
	case errors.Is(err, screeningsvc.ErrDuplicateActiveLink):
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to issue link: ", err),
		})
		return
	}
	c.JSON(http.StatusCreated, link)
}

// RegenerateLink expires active links and issues a fresh one.
// @Summary Regenerate an interview link
// @Tags Screening
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param Request body IssueRequest false "Link time-to-live in hours, default 72"
// @Success 201 {object} model.InterviewLink "Issued link"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/interview-link/regenerate [post]
func (sc *Controller) RegenerateLink(c *gin.Context) {

	appID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid application id"})
		return
	}

	var req IssueRequest
	_ = c.ShouldBindJSON(&req)

	link, err := sc.Manager.Regenerate(c.Request.Context(), uint(appID), req.ttl())
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to regenerate link: ", err),
		})
		return
	}
	c.JSON(http.StatusCreated, link)
}

// SendLink marks a link as delivered to the candidate.
// @Summary Mark an interview link as sent
// @Tags Screening
// @Produce json
// @Param linkId path int true "Link ID"
// @Success 200 {object} model.InterviewLink "Updated link"
// @Failure 404 {object} utilities.ErrorResponse "Link not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /interview-links/{linkId}/send [post]
func (sc *Controller) SendLink(c *gin.Context) {

	linkID, err := strconv.ParseUint(c.Param("linkId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid link id"})
		return
	}

	link, err := sc.Manager.MarkSent(c.Request.Context(), uint(linkID))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Link not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to mark link sent: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, link)
}

// ListLinks fetches all interview links for an application.
// @Summary List an application's interview links
// @Tags Screening
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {array} model.InterviewLink "Links, newest first"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/interview-links [get]
func (sc *Controller) ListLinks(c *gin.Context) {

	var links []model.InterviewLink
	if err := sc.DB.Where("app_id = ?", c.Param("id")).Order("id DESC").Find(&links).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve links: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, links)
}

// EvaluateNow triggers interview evaluation from the dashboard.
// @Summary Evaluate a stored transcript now
// @Description Synchronous alternative to the queued evaluation
// @Tags Screening
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} model.Application "Application with interview score"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "No transcript stored"
// @Failure 502 {object} utilities.ErrorResponse "Evaluation gateway failure"
// @Router /applications/{id}/evaluate [post]
func (sc *Controller) EvaluateNow(c *gin.Context) {

	appID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid application id"})
		return
	}

	app, err := sc.Manager.EvaluateNow(c.Request.Context(), uint(appID))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
		return
	case errors.Is(err, screeningsvc.ErrNoTranscript):
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, decision.ErrIncompleteScores):
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, utilities.ErrorResponse{
			Error: fmt.Sprint("Evaluation failed: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, app)
}

// ManualTranscriptRequest is the body for dashboard transcript entry.
type ManualTranscriptRequest struct {
	Transcript      string `json:"transcript" binding:"required"`
	DurationSeconds int    `json:"duration_seconds"`
}

// SubmitManualTranscript stores a transcript entered from the dashboard,
// for interviews held outside the link flow.
// @Summary Submit a transcript manually
// @Tags Screening
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param Request body ManualTranscriptRequest true "Transcript"
// @Success 200 {object} utilities.MessageResponse "Transcript stored and evaluation queued"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Transcript already stored"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /applications/{id}/transcript [post]
func (sc *Controller) SubmitManualTranscript(c *gin.Context) {

	appID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid application id"})
		return
	}

	var req ManualTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	err = sc.Manager.RecordManualTranscript(c.Request.Context(), uint(appID), req.Transcript, req.DurationSeconds)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
		return
	case errors.Is(err, screeningsvc.ErrTranscriptExists):
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to store transcript: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Transcript stored and evaluation queued"})
}

// --- Public, token-authenticated endpoints ---

// ValidateLink checks a public interview token.
// @Summary Validate an interview link
// @Description Always returns 200 with a structured valid/reason body
// @Tags Interview
// @Produce json
// @Param token path string true "Link token"
// @Success 200 {object} screening.ValidationResult "Validation outcome"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /interview/{token}/validate [get]
func (sc *Controller) ValidateLink(c *gin.Context) {

	result, err := sc.Manager.Validate(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to validate link: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// StatusRequest is the body for the public status update endpoint.
type StatusRequest struct {
	Status         string  `json:"status" binding:"required"`
	ConversationID *string `json:"conversation_id"`
}

// UpdateStatus applies a candidate-reported interview status.
// @Summary Update interview status
// @Description Status only moves forward; regressions are ignored
// @Tags Interview
// @Accept json
// @Produce json
// @Param token path string true "Link token"
// @Param Request body StatusRequest true "New status"
// @Success 200 {object} model.InterviewLink "Link after the update"
// @Failure 400 {object} utilities.ErrorResponse "Unknown status"
// @Failure 404 {object} utilities.ErrorResponse "Link not found or expired"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /interview/{token}/status [post]
func (sc *Controller) UpdateStatus(c *gin.Context) {

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	status, err := model.ParseLinkStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	link, err := sc.Manager.RecordStatus(c.Request.Context(), c.Param("token"), status, req.ConversationID)
	switch {
	case errors.Is(err, screeningsvc.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Link not found or expired"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, link)
}

// FaceTelemetryRequest is one face-tracking snapshot from the interview page.
type FaceTelemetryRequest struct {
	Sample map[string]float64 `json:"sample" binding:"required"`
}

// RecordFaceTelemetry folds a face-tracking snapshot into the link.
// @Summary Record face telemetry
// @Tags Interview
// @Accept json
// @Produce json
// @Param token path string true "Link token"
// @Param Request body FaceTelemetryRequest true "Snapshot metrics"
// @Success 200 {object} utilities.MessageResponse "Recorded"
// @Failure 404 {object} utilities.ErrorResponse "Link not found or expired"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /interview/{token}/face-telemetry [post]
func (sc *Controller) RecordFaceTelemetry(c *gin.Context) {

	var req FaceTelemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	err := sc.Manager.RecordFaceTelemetry(c.Request.Context(), c.Param("token"), req.Sample)
	switch {
	case errors.Is(err, screeningsvc.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Link not found or expired"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to record telemetry: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Recorded"})
}

// TranscriptRequest is the body for the public transcript submission.
type TranscriptRequest struct {
	Transcript      string `json:"transcript" binding:"required"`
	DurationSeconds int    `json:"duration_seconds"`
}

// SubmitTranscript stores the interview transcript and queues evaluation.
// @Summary Submit the interview transcript
// @Description Idempotent; a repeat submission is accepted and ignored
// @Tags Interview
// @Accept json
// @Produce json
// @Param token path string true "Link token"
// @Param Request body TranscriptRequest true "Transcript"
// @Success 200 {object} utilities.MessageResponse "Transcript received"
// @Failure 404 {object} utilities.ErrorResponse "Link not found or expired"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /interview/{token}/transcript [post]
func (sc *Controller) SubmitTranscript(c *gin.Context) {

	var req TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	err := sc.Manager.RecordTranscript(c.Request.Context(), c.Param("token"), req.Transcript, req.DurationSeconds)
	switch {
	case errors.Is(err, screeningsvc.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Link not found or expired"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to record transcript: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Transcript received"})
}

// webhookPayload is the vendor's transcript delivery body.
type webhookPayload struct {
	ConversationID  string `json:"conversation_id"`
	Transcript      string `json:"transcript"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Webhook receives vendor-side transcript deliveries.
// @Summary Vendor transcript webhook
// @Description Requires a valid HMAC-SHA256 signature over the raw body
// @Tags Interview
// @Accept json
// @Produce json
// @Param X-Signature header string true "HMAC-SHA256 of the body, hex"
// @Success 200 {object} utilities.MessageResponse "Processed"
// @Failure 401 {object} utilities.ErrorResponse "Bad signature"
// @Failure 404 {object} utilities.ErrorResponse "Unknown conversation"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /webhooks/interview [post]
func (sc *Controller) Webhook(c *gin.Context) {

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Failed to read body"})
		return
	}
	if !screeningsvc.VerifySignature(screeningsvc.WebhookSecret(), body, c.GetHeader("X-Signature")) {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: "Invalid signature"})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.ConversationID == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid webhook payload"})
		return
	}

	err = sc.Manager.ProcessWebhookTranscript(c.Request.Context(), payload.ConversationID, payload.Transcript, payload.DurationSeconds)
	switch {
	case errors.Is(err, screeningsvc.ErrLinkNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Unknown conversation"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to process webhook: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Processed"})
}
