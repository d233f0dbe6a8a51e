package model

import "time"

// AgentUsage records one call to an external agent (or its mock fallback)
// for the settings usage report.
type AgentUsage struct {
	ID uint `gorm:"primaryKey;autoIncrement;->" json:"id"`

	Agent        string `gorm:"type:text;not null;index" json:"agent"`
	Mode         string `gorm:"type:text;not null" json:"mode"` // live / mock
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	LatencyMS    int64  `json:"latency_ms"`
	Status       string `gorm:"type:text" json:"status"` // success / error

	CreatedAt time.Time `gorm:"type:timestamp;default:CURRENT_TIMESTAMP;->" json:"created_at"`
}
