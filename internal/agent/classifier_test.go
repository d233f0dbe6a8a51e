package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireops-backend/internal/model"
)

// mockClassifier builds a classifier forced onto its deterministic mock with
// no usage accounting.
func mockClassifier(t *testing.T) *Classifier {
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("EMAIL_CLASSIFIER_MOCK", "true")
	return NewClassifier(nil, NewClient())
}

func TestClassifyResumeAttachment(t *testing.T) {
	cl := mockClassifier(t)

	res, err := cl.Classify(context.Background(), ClassifyInput{
		Subject:         "Application for Backend Engineer position",
		FromName:        "Alice Nguyen",
		FromEmail:       "alice.nguyen@example.com",
		AttachmentNames: []string{"alice_nguyen_resume.PDF"},
		BodyText:        "Please find my resume attached.",
	})
	require.NoError(t, err)

	assert.Equal(t, model.CategoryCandidateApplication, res.Category)
	assert.Equal(t, 0.92, res.Confidence)
	assert.Equal(t, "Alice Nguyen", res.DetectedName)
}

func TestClassifyKeywordsWithoutAttachment(t *testing.T) {
	cl := mockClassifier(t)

	res, err := cl.Classify(context.Background(), ClassifyInput{
		Subject:   "Interested in the Data Analyst role",
		FromEmail: "daniel.okafor@example.com",
		BodyText:  "I would like to apply for this position.",
	})
	require.NoError(t, err)

	assert.Equal(t, model.CategoryCandidateApplication, res.Category)
	assert.Equal(t, 0.78, res.Confidence)
	// Name falls back to the address when the header carries none.
	assert.Equal(t, "Daniel Okafor", res.DetectedName)
}

func TestClassifyNoise(t *testing.T) {
	cl := mockClassifier(t)

	res, err := cl.Classify(context.Background(), ClassifyInput{
		Subject:   "Your weekly industry digest",
		FromEmail: "newsletter@vendor.example.com",
		BodyText:  "Top stories this week in SaaS.",
	})
	require.NoError(t, err)

	assert.Equal(t, model.CategoryGeneral, res.Category)
	assert.Equal(t, 0.85, res.Confidence)
}

func TestClassifyOneKeywordIsNotEnough(t *testing.T) {
	cl := mockClassifier(t)

	res, err := cl.Classify(context.Background(), ClassifyInput{
		Subject:   "Invoice for contract work",
		FromEmail: "billing@vendor.example.com",
		BodyText:  "Attached is the invoice for the role we discussed.",
	})
	require.NoError(t, err)

	assert.Equal(t, model.CategoryGeneral, res.Category)
}

// liveClassifier builds a classifier in live mode pointed at the given base
// URL, for exercising the gateway failure paths.
func liveClassifier(t *testing.T, base string) *Classifier {
	t.Setenv("MISTRAL_API_KEY", "key")
	t.Setenv("EMAIL_CLASSIFIER_MOCK", "")
	t.Setenv("EMAIL_CLASSIFIER_AGENT_ID", "ag-test")
	t.Setenv("AGENT_API_BASE", base)
	return NewClassifier(nil, NewClient())
}

func TestClassifyGatewayFailureFailsSoft(t *testing.T) {
	cl := liveClassifier(t, "http://127.0.0.1:1")

	res, err := cl.Classify(context.Background(), ClassifyInput{Subject: "Hello"})
	require.Error(t, err)

	assert.Equal(t, model.CategoryUnknown, res.Category)
	assert.Zero(t, res.Confidence)
}

func TestClassifyMalformedReplyFailsSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"outputs":[{"content":"definitely not json"}]}`))
	}))
	defer srv.Close()
	cl := liveClassifier(t, srv.URL)

	res, err := cl.Classify(context.Background(), ClassifyInput{Subject: "Hello"})
	require.Error(t, err)

	assert.Equal(t, model.CategoryUnknown, res.Category)
	assert.Zero(t, res.Confidence)
}

func TestNameFromAddress(t *testing.T) {
	assert.Equal(t, "Jane Doe", nameFromAddress("jane.doe@example.com"))
	assert.Equal(t, "Jane Doe", nameFromAddress("jane_doe@example.com"))
	assert.Equal(t, "Jane", nameFromAddress("jane@example.com"))
}
