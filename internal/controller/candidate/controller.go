// Package candidate provides HTTP handlers for candidate profile operations.
package candidate

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hireops-backend/internal/database"
	"hireops-backend/internal/model"
	"hireops-backend/internal/resume"
	"hireops-backend/internal/utilities"
	"hireops-backend/internal/workflow"
)

// Controller handles candidate endpoints.
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

// EditableCandidateInfo carries the fields HR may set directly.
type EditableCandidateInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	ResumeText string `json:"resume_text"`
	Notes      string `json:"notes"`
}

// CreateCandidate handles manual candidate creation.
// @Summary Create a candidate
// @Tags Candidate
// @Accept json
// @Produce json
// @Param Candidate body EditableCandidateInfo true "Candidate fields"
// @Success 201 {object} model.Candidate "Successfully created candidate"
// @Failure 400 {object} utilities.ErrorResponse "Invalid candidate struct"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /candidates [post]
func (cc *Controller) CreateCandidate(c *gin.Context) {

	var info EditableCandidateInfo
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&info); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if info.Name == "" || info.Email == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Candidate name and email are required"})
		return
	}

	candidate := model.Candidate{
		Name:       info.Name,
		Email:      info.Email,
		Phone:      info.Phone,
		ResumeText: info.ResumeText,
		Notes:      info.Notes,
	}
	if err := cc.DB.Create(&candidate).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to create candidate: ", err),
		})
		return
	}
	c.JSON(http.StatusCreated, candidate)
}

// FromEmail creates (or returns) the candidate extracted from a classified
// application email.
// @Summary Create a candidate from an inbox email
// @Description The email must be classified as a candidate application first
// @Tags Candidate
// @Produce json
// @Param emailId path int true "Email ID"
// @Success 201 {object} model.Candidate "Candidate for the email"
// @Failure 400 {object} utilities.ErrorResponse "Email is not a candidate application"
// @Failure 404 {object} utilities.ErrorResponse "Email not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /candidates/from-email/{emailId} [post]
func (cc *Controller) FromEmail(c *gin.Context) {

	var email model.Email
	if err := cc.DB.First(&email, c.Param("emailId")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve email: ", err),
		})
		return
	}
	if email.ClassifiedAs == nil || *email.ClassifiedAs != model.CategoryCandidateApplication {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Email is not classified as a candidate application",
		})
		return
	}

	candidate, err := cc.Orchestrator.CandidateFromEmail(c.Request.Context(), &email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to create candidate: ", err),
		})
		return
	}
	c.JSON(http.StatusCreated, candidate)
}

// UploadResume attaches a resume file to a candidate, extracting its text.
// @Summary Upload a candidate's resume
// @Description Accepts pdf, docx, doc or txt; extracted text replaces resume_text
// @Tags Candidate
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Candidate ID"
// @Param file formData file true "Resume file"
// @Success 200 {object} model.Candidate "Candidate with extracted resume"
// @Failure 400 {object} utilities.ErrorResponse "Missing or unsupported file"
// @Failure 404 {object} utilities.ErrorResponse "Candidate not found"
// @Failure 500 {object} utilities.ErrorResponse "Extraction or database error"
// @Router /candidates/{id}/resume [post]
func (cc *Controller) UploadResume(c *gin.Context) {

	var candidate model.Candidate
	if err := cc.DB.First(&candidate, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Candidate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve candidate: ", err),
		})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Resume file is required"})
		return
	}

	// Extraction works on paths, so stage the upload in a temp dir.
	tmpDir, err := os.MkdirTemp("", "resume-upload-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to stage upload: ", err),
		})
		return
	}
	defer func() {
		_ = os.RemoveAll(tmpDir)
	}()

	tmpPath := filepath.Join(tmpDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to store upload: ", err),
		})
		return
	}

	text, err := resume.ExtractText(tmpPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to extract resume text: ", err),
		})
		return
	}

	candidate.ResumeText = text
	candidate.ResumeFilename = filepath.Base(file.Filename)
	contact := resume.ParseContact(text)
	if candidate.Phone == "" {
		candidate.Phone = contact.Phone
	}
	if err := cc.DB.Save(&candidate).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to update candidate: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// ListCandidates fetches candidates matching the query.
// @Summary List candidates
// @Tags Candidate
// @Produce json
// @Param search query string false "Substring match on name or email, case insensitive"
// @Param page query int false "Page number, 1-based"
// @Param limit query int false "Page size, default 20"
// @Success 200 {array} model.Candidate "Matching candidates"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /candidates [get]
func (cc *Controller) ListCandidates(c *gin.Context) {

	query := cc.DB.Model(&model.Candidate{})
	if search := c.Query("search"); search != "" {
		query = query.Where("name ILIKE ? OR email ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var candidates []model.Candidate
	if err := query.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&candidates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve candidates: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, candidates)
}

// GetCandidate fetches one candidate with their applications.
// @Summary Get a candidate
// @Tags Candidate
// @Produce json
// @Param id path int true "Candidate ID"
// @Success 200 {object} model.Candidate "The candidate"
// @Failure 404 {object} utilities.ErrorResponse "Candidate not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /candidates/{id} [get]
func (cc *Controller) GetCandidate(c *gin.Context) {

	var candidate model.Candidate
	if err := cc.DB.Preload("Applications").First(&candidate, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Candidate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve candidate: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// NotesRequest is the body for the candidate notes endpoint.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// UpdateNotes replaces the candidate's notes.
// @Summary Update candidate notes
// @Tags Candidate
// @Accept json
// @Produce json
// @Param id path int true "Candidate ID"
// @Param Request body NotesRequest true "Notes"
// @Success 200 {object} model.Candidate "Updated candidate"
// @Failure 404 {object} utilities.ErrorResponse "Candidate not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /candidates/{id}/notes [patch]
func (cc *Controller) UpdateNotes(c *gin.Context) {

	var candidate model.Candidate
	if err := cc.DB.First(&candidate, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Candidate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to retrieve candidate: ", err),
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

	candidate.Notes = req.Notes
	if err := cc.DB.Save(&candidate).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to update candidate: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, candidate)
}
