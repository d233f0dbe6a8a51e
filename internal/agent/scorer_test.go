package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireops-backend/internal/model"
)

func mockScorer(t *testing.T) *Scorer {
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("RESUME_SCORER_MOCK", "true")
	return NewScorer(nil, NewClient())
}

func TestScoreFullSkillCoverage(t *testing.T) {
	s := mockScorer(t)

	res, err := s.Score(context.Background(), ScoreInput{
		ResumeText: "Five years building Go services on PostgreSQL, deployed with Docker.",
		JobTitle:   "Backend Engineer",
		MustHave:   []string{"Go", "PostgreSQL", "Docker"},
	})
	require.NoError(t, err)

	assert.Equal(t, 98.0, res.Score)
	assert.Equal(t, model.RecommendationAdvance, res.Recommendation)
	assert.Len(t, res.MatchedSkills, 3)
	assert.Empty(t, res.Gaps)
	assert.NotEmpty(t, res.ScreeningQuestions)
}

func TestScorePartialCoverage(t *testing.T) {
	s := mockScorer(t)

	res, err := s.Score(context.Background(), ScoreInput{
		ResumeText: "Frontend developer, mostly React and TypeScript. Some Docker.",
		JobTitle:   "Backend Engineer",
		MustHave:   []string{"Go", "PostgreSQL", "Docker"},
		NiceToHave: []string{"Kubernetes"},
	})
	require.NoError(t, err)

	// One of three must-haves, none of the nice-to-haves.
	assert.Equal(t, 58.0, res.Score)
	assert.Equal(t, model.RecommendationHold, res.Recommendation)
	assert.ElementsMatch(t, []string{"Go", "PostgreSQL"}, res.Gaps)
	assert.NotEmpty(t, res.Risks)
}

func TestScoreNoCoverage(t *testing.T) {
	s := mockScorer(t)

	res, err := s.Score(context.Background(), ScoreInput{
		ResumeText: "Graphic designer. Figma and Illustrator.",
		JobTitle:   "Backend Engineer",
		MustHave:   []string{"Go", "PostgreSQL"},
		NiceToHave: []string{"Kubernetes"},
	})
	require.NoError(t, err)

	assert.Equal(t, 45.0, res.Score)
	assert.Equal(t, model.RecommendationReject, res.Recommendation)
}

func TestFlattenScoreRecommendationVerbs(t *testing.T) {
	cases := map[string]model.Recommendation{
		"screen":    model.RecommendationAdvance,
		"shortlist": model.RecommendationAdvance,
		"Advance":   model.RecommendationAdvance,
		"reject":    model.RecommendationReject,
		"unsure":    model.RecommendationHold,
		"":          model.RecommendationHold,
	}
	for verb, want := range cases {
		var vendor vendorScoreResponse
		vendor.Match.Score = 70
		vendor.Match.Recommendation = verb
		assert.Equal(t, want, flattenScore(vendor).Recommendation, "verb %q", verb)
	}
}

func TestFlattenScoreEvidence(t *testing.T) {
	var vendor vendorScoreResponse
	vendor.CandidateSummary = "Strong backend profile."
	vendor.Match.Score = 86
	vendor.Match.Recommendation = "screen"
	vendor.Match.Evidence = []struct {
		Skill          string `json:"skill"`
		ResumeEvidence string `json:"resume_evidence"`
	}{
		{Skill: "Go", ResumeEvidence: "Five years of Go services"},
	}

	res := flattenScore(vendor)
	assert.Equal(t, 86.0, res.Score)
	assert.Equal(t, "Strong backend profile.", res.CandidateSummary)
	require.Len(t, res.MatchedSkills, 1)
	assert.Equal(t, SkillEvidence{Skill: "Go", Evidence: "Five years of Go services"}, res.MatchedSkills[0])
}
