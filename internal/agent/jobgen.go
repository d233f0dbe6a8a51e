package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"
)

// JobDraft is the fixed response contract of the job drafting gateway.
type JobDraft struct {
	Title       string   `json:"title"`
	Department  string   `json:"department"`
	Location    string   `json:"location"`
	Seniority   string   `json:"seniority"`
	Skills      []string `json:"skills"`
	Description string   `json:"description"`
}

// JobGenerator turns a one-line role request into a full posting draft.
type JobGenerator struct {
	db      *gorm.DB
	client  *Client
	agentID string
}

// NewJobGenerator constructs the job drafting gateway.
func NewJobGenerator(db *gorm.DB, client *Client) *JobGenerator {
	return &JobGenerator{
		db:      db,
		client:  client,
		agentID: os.Getenv("JOB_GENERATOR_AGENT_ID"),
	}
}

// Generate drafts a job posting from a short prompt such as
// "Senior Go engineer, Berlin". The draft is returned for review; nothing is
// persisted here.
func (j *JobGenerator) Generate(ctx context.Context, prompt string) (JobDraft, error) {
	if j.client.useMock("JOB_GENERATOR") || j.agentID == "" {
		res := j.mockDraft(prompt)
		logUsage(j.db, "job_generator", "mock", 0, 0, 5*time.Millisecond, "success")
		return res, nil
	}

	start := time.Now()
	reply, err := j.client.Converse(ctx, j.agentID, prompt)
	if err != nil {
		logUsage(j.db, "job_generator", "live", approxTokens(prompt), 0, time.Since(start), "error")
		return JobDraft{}, fmt.Errorf("job drafting gateway: %w", err)
	}

	var draft JobDraft
	if err := json.Unmarshal([]byte(stripFences(reply)), &draft); err != nil {
		logUsage(j.db, "job_generator", "live", approxTokens(prompt), approxTokens(reply), time.Since(start), "error")
		return JobDraft{}, fmt.Errorf("job drafting gateway: malformed response: %w", err)
	}
	if draft.Title == "" {
		logUsage(j.db, "job_generator", "live", approxTokens(prompt), approxTokens(reply), time.Since(start), "error")
		return JobDraft{}, fmt.Errorf("job drafting gateway: draft is missing a title")
	}

	logUsage(j.db, "job_generator", "live", approxTokens(prompt), approxTokens(reply), time.Since(start), "success")
	return draft, nil
}

// mockDraft builds a serviceable posting from whatever the prompt contains.
func (j *JobGenerator) mockDraft(prompt string) JobDraft {
	title := strings.TrimSpace(prompt)
	if title == "" {
		title = "Software Engineer"
	}
	lower := strings.ToLower(title)

	seniority := "mid"
	switch {
	case strings.Contains(lower, "senior") || strings.Contains(lower, "staff") || strings.Contains(lower, "lead"):
		seniority = "senior"
	case strings.Contains(lower, "junior") || strings.Contains(lower, "intern"):
		seniority = "junior"
	}

	skills := []string{"Communication", "Problem solving"}
	for kw, skill := range map[string]string{
		"go":       "Go",
		"golang":   "Go",
		"python":   "Python",
		"backend":  "PostgreSQL",
		"frontend": "TypeScript",
		"data":     "SQL",
		"devops":   "Kubernetes",
		"platform": "Terraform",
	} {
		if strings.Contains(lower, kw) {
			skills = append(skills, skill)
		}
	}

	return JobDraft{
		Title:      title,
		Department: "Engineering",
		Location:   "Remote",
		Seniority:  seniority,
		Skills:     skills,
		Description: fmt.Sprintf(
			"We are looking for a %s to join the team. You will design, build and operate production systems, collaborate with product and hiring stakeholders, and raise the engineering bar.",
			title,
		),
	}
}
