package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireops-backend/internal/model"
	"hireops-backend/internal/utilities"
)

func mockEvaluator(t *testing.T) *Evaluator {
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("INTERVIEW_EVALUATOR_MOCK", "true")
	return NewEvaluator(nil, NewClient())
}

func TestEvaluateTracksResumeScore(t *testing.T) {
	e := mockEvaluator(t)

	res, err := e.Evaluate(context.Background(), EvaluateInput{
		Transcript:  "Q: Tell me about your Go experience. A: Five years of services.",
		JobTitle:    "Backend Engineer",
		MustHave:    []string{"Go"},
		ResumeScore: utilities.Ptr(90.0),
	})
	require.NoError(t, err)

	// 90*0.7+20 = 83
	assert.Equal(t, 83.0, res.Score)
	assert.Equal(t, model.RecommendationAdvance, res.Recommendation)
	assert.Len(t, res.SuggestedSlots, 3)
	assert.Contains(t, res.EmailDraft, "next round")
	assert.Contains(t, res.Ratings, "communication")
}

func TestEvaluateWithoutResumeScore(t *testing.T) {
	e := mockEvaluator(t)

	res, err := e.Evaluate(context.Background(), EvaluateInput{
		Transcript: "Short interview.",
		JobTitle:   "Data Analyst",
	})
	require.NoError(t, err)

	// Baseline of 60 when no resume score exists: 60*0.7+20 = 62.
	assert.Equal(t, 62.0, res.Score)
	assert.Equal(t, model.RecommendationHold, res.Recommendation)
}

func TestEvaluateLowResumeScoreRejects(t *testing.T) {
	e := mockEvaluator(t)

	res, err := e.Evaluate(context.Background(), EvaluateInput{
		Transcript:  "The candidate could not answer the screening questions.",
		JobTitle:    "Platform Engineer",
		ResumeScore: utilities.Ptr(30.0),
	})
	require.NoError(t, err)

	// 30*0.7+20 = 41
	assert.Equal(t, 41.0, res.Score)
	assert.Equal(t, model.RecommendationReject, res.Recommendation)
	assert.Contains(t, res.EmailDraft, "not to move forward")
}
