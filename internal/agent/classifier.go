package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"hireops-backend/internal/model"
)

// ClassifyInput is the fixed request contract of the classification gateway.
type ClassifyInput struct {
	Subject         string
	FromName        string
	FromEmail       string
	AttachmentNames []string
	BodyText        string
}

// ClassifyResult is the fixed response contract of the classification gateway.
type ClassifyResult struct {
	Category        string  `json:"category"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
	SuggestedAction string  `json:"suggested_action"`
	DetectedName    string  `json:"detected_name"`
	DetectedRole    string  `json:"detected_role"`
}

// Classifier labels inbound emails as candidate applications or noise.
type Classifier struct {
	db      *gorm.DB
	client  *Client
	agentID string
}

// NewClassifier constructs the classifier gateway.
func NewClassifier(db *gorm.DB, client *Client) *Classifier {
	return &Classifier{
		db:      db,
		client:  client,
		agentID: os.Getenv("EMAIL_CLASSIFIER_AGENT_ID"),
	}
}

var applicationKeywords = []string{
	"apply", "application", "resume", "cv", "position", "role", "job",
	"opportunity", "hiring",
}

// Classify labels an email. It never propagates a gateway failure: on any
// external error or malformed payload the result is the unknown category with
// confidence zero, and the returned error exists only so callers can log it.
// Classification failures must never block inbox listing.
func (cl *Classifier) Classify(ctx context.Context, in ClassifyInput) (ClassifyResult, error) {
	if cl.client.useMock("EMAIL_CLASSIFIER") || cl.agentID == "" {
		res := cl.mockClassify(in)
		logUsage(cl.db, "email_classifier", "mock", 0, 0, 5*time.Millisecond, "success")
		return res, nil
	}

	content := fmt.Sprintf(
		"subject: %s\nfrom_name: %s\nfrom_email: %s\nattachment_names: %s\nbody_text: %s",
		in.Subject, in.FromName, in.FromEmail, strings.Join(in.AttachmentNames, ", "), in.BodyText,
	)

	start := time.Now()
	reply, err := cl.client.Converse(ctx, cl.agentID, content)
	if err != nil {
		logUsage(cl.db, "email_classifier", "live", approxTokens(content), 0, time.Since(start), "error")
		return unknownResult(), fmt.Errorf("classification gateway: %w", err)
	}

	var res ClassifyResult
	if err := json.Unmarshal([]byte(stripFences(reply)), &res); err != nil {
		logUsage(cl.db, "email_classifier", "live", approxTokens(content), approxTokens(reply), time.Since(start), "error")
		return unknownResult(), fmt.Errorf("classification gateway: malformed response: %w", err)
	}
	if !validCategory(res.Category) || res.Confidence < 0 || res.Confidence > 1 {
		logUsage(cl.db, "email_classifier", "live", approxTokens(content), approxTokens(reply), time.Since(start), "error")
		return unknownResult(), fmt.Errorf("classification gateway: invalid category %q", res.Category)
	}

	logUsage(cl.db, "email_classifier", "live", approxTokens(content), approxTokens(reply), time.Since(start), "success")
	return res, nil
}

func unknownResult() ClassifyResult {
	return ClassifyResult{Category: model.CategoryUnknown, Confidence: 0}
}

func validCategory(c string) bool {
	switch c {
	case model.CategoryCandidateApplication, model.CategoryGeneral, model.CategoryUnknown:
		return true
	}
	return false
}

// mockClassify is the deterministic fallback: a resume attachment or two
// application keywords make the email a candidate application.
func (cl *Classifier) mockClassify(in ClassifyInput) ClassifyResult {
	hasResume := false
	for _, name := range in.AttachmentNames {
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".pdf") || strings.HasSuffix(lower, ".docx") || strings.HasSuffix(lower, ".doc") {
			hasResume = true
			break
		}
	}

	text := strings.ToLower(in.Subject + " " + in.BodyText)
	hits := 0
	for _, kw := range applicationKeywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}

	if hasResume || hits >= 2 {
		name := in.FromName
		if name == "" {
			name = nameFromAddress(in.FromEmail)
		}
		confidence := 0.78
		reasoning := "Email body contains multiple application-related keywords"
		if hasResume {
			confidence = 0.92
			reasoning = "Email contains resume attachment and application keywords"
		}
		return ClassifyResult{
			Category:        model.CategoryCandidateApplication,
			Confidence:      confidence,
			Reasoning:       reasoning,
			SuggestedAction: "Extract resume and create candidate profile",
			DetectedName:    name,
			DetectedRole:    "Software Engineer",
		}
	}

	return ClassifyResult{
		Category:        model.CategoryGeneral,
		Confidence:      0.85,
		Reasoning:       "No resume attachment or application keywords detected",
		SuggestedAction: "Archive or ignore",
	}
}

// nameFromAddress turns "jane.doe@example.com" into "Jane Doe".
func nameFromAddress(addr string) string {
	local, _, _ := strings.Cut(addr, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '_' || r == '-' })
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
