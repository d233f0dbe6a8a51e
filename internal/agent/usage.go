package agent

import (
	"log"
	"time"

	"gorm.io/gorm"

	"hireops-backend/internal/model"
)

// logUsage records one agent call for the settings usage report. Usage
// accounting is best-effort and never fails the caller.
func logUsage(db *gorm.DB, agent, mode string, inTok, outTok int, latency time.Duration, status string) {
	if db == nil {
		return
	}
	row := model.AgentUsage{
		Agent:        agent,
		Mode:         mode,
		InputTokens:  inTok,
		OutputTokens: outTok,
		LatencyMS:    latency.Milliseconds(),
		Status:       status,
	}
	if err := db.Create(&row).Error; err != nil {
		log.Printf("failed to record %s usage: %v", agent, err)
	}
}
