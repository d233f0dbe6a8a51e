// Package settings provides HTTP handlers for deployment configuration and
// agent usage reporting.
package settings

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hireops-backend/internal/database"
	"hireops-backend/internal/decision"
	"hireops-backend/internal/model"
	"hireops-backend/internal/utilities"
)

// Controller handles settings endpoints.
type Controller struct {
	DB *database.DBinstanceStruct
}

// NewController creates a new instance of Controller.
func NewController(db *database.DBinstanceStruct) *Controller {
	return &Controller{
		DB: db,
	}
}

// AgentStatus describes one agent's operating mode.
type AgentStatus struct {
	Agent      string `json:"agent"`
	Mode       string `json:"mode"`
	Configured bool   `json:"configured"`
}

// agentEnvs maps each agent to the env var naming its vendor agent id.
var agentEnvs = map[string]string{
	"email_classifier":    "EMAIL_CLASSIFIER_AGENT_ID",
	"resume_scorer":       "RESUME_SCORER_AGENT_ID",
	"interview_evaluator": "INTERVIEW_EVALUATOR_AGENT_ID",
	"job_generator":       "JOB_GENERATOR_AGENT_ID",
}

// GetAgents reports the live/mock mode of each agent.
// @Summary Agent status
// @Tags Settings
// @Produce json
// @Success 200 {array} AgentStatus "Per-agent mode"
// @Router /settings/agents [get]
func (tc *Controller) GetAgents(c *gin.Context) {

	apiKey := os.Getenv("MISTRAL_API_KEY")

	statuses := make([]AgentStatus, 0, len(agentEnvs))
	for agentName, env := range agentEnvs {
		agentID := os.Getenv(env)
		prefix := strings.TrimSuffix(env, "_AGENT_ID")
		forcedMock := strings.EqualFold(os.Getenv(prefix+"_MOCK"), "true")

		mode := "live"
		if forcedMock || apiKey == "" || agentID == "" {
			mode = "mock"
		}
		statuses = append(statuses, AgentStatus{
			Agent:      agentName,
			Mode:       mode,
			Configured: agentID != "",
		})
	}
	c.JSON(http.StatusOK, statuses)
}

// SystemConfig is the effective deployment configuration, secrets excluded.
type SystemConfig struct {
	DecisionThresholds decision.Thresholds `json:"decision_thresholds"`
	AgentAPIBase       string              `json:"agent_api_base"`
	APIKeyConfigured   bool                `json:"api_key_configured"`
	WebhookConfigured  bool                `json:"webhook_configured"`
	RateLimitPerSecond int                 `json:"rate_limit_per_second"`
}

// GetConfig reports the effective system configuration.
// @Summary System configuration
// @Description Secrets are reported as configured/not configured, never echoed
// @Tags Settings
// @Produce json
// @Success 200 {object} SystemConfig "Effective configuration"
// @Router /settings/config [get]
func (tc *Controller) GetConfig(c *gin.Context) {

	base := os.Getenv("AGENT_API_BASE")
	if base == "" {
		base = "https://api.mistral.ai"
	}
	rate, err := strconv.Atoi(os.Getenv("PUBLIC_RATE_LIMIT"))
	if err != nil || rate <= 0 {
		rate = 5
	}

	c.JSON(http.StatusOK, SystemConfig{
		DecisionThresholds: decision.DefaultThresholds(),
		AgentAPIBase:       base,
		APIKeyConfigured:   os.Getenv("MISTRAL_API_KEY") != "",
		WebhookConfigured:  os.Getenv("AGENT_WEBHOOK_SECRET") != "",
		RateLimitPerSecond: rate,
	})
}

// UsageEntry aggregates agent usage per agent and mode.
type UsageEntry struct {
	Agent        string  `json:"agent"`
	Mode         string  `json:"mode"`
	Calls        int64   `json:"calls"`
	Errors       int64   `json:"errors"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// GetUsage reports aggregated agent usage.
// @Summary Agent usage report
// @Tags Settings
// @Produce json
// @Success 200 {array} UsageEntry "Usage per agent and mode"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /settings/usage [get]
func (tc *Controller) GetUsage(c *gin.Context) {

	var entries []UsageEntry
	err := tc.DB.Model(&model.AgentUsage{}).
		Select(`agent,
			mode,
			COUNT(*) AS calls,
			COUNT(*) FILTER (WHERE status = 'error') AS errors,
			COALESCE(SUM(input_tokens), 0) AS input_tokens,
			COALESCE(SUM(output_tokens), 0) AS output_tokens,
			COALESCE(AVG(latency_ms), 0) AS avg_latency_ms`).
		Group("agent, mode").
		Order("agent, mode").
		Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to aggregate usage: ", err),
		})
		return
	}
	c.JSON(http.StatusOK, entries)
}
