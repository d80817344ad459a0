package models

import (
	"encoding/json"
	"time"
)

// Panel dialects. DialectAuto defers classification to a runtime probe.
const (
	DialectV1   = "v1" // action-based query API (key=...&action=...)
	DialectV2   = "v2" // RESTful, header-authenticated
	DialectAuto = "auto"
)

// Panel maps to the `panels` table: one external SMM panel deployment.
// Read-only from the pipeline's perspective except for detected-endpoint
// writes after a successful fallback probe.
type Panel struct {
	ID      uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID  uint   `gorm:"column:user_id;index" json:"user_id"`
	Name    string `gorm:"column:name;size:200" json:"name"`
	BaseURL string `gorm:"column:base_url;size:500" json:"base_url"`
	Dialect string `gorm:"column:dialect;size:10;default:auto" json:"dialect"`
	APIKey  string `gorm:"column:api_key;size:500" json:"api_key"`
	Active  bool   `gorm:"column:active;default:true" json:"active"`

	// DetectedEndpoints is a JSON map of logical operation -> endpoint
	// persisted from prior successful fallback runs.
	DetectedEndpoints string `gorm:"column:detected_endpoints;type:text" json:"detected_endpoints"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Panel) TableName() string {
	return "panels"
}

// DetectedEndpoint returns the persisted endpoint for an operation, if any.
func (p *Panel) DetectedEndpoint(op string) string {
	if p.DetectedEndpoints == "" {
		return ""
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(p.DetectedEndpoints), &m); err != nil {
		return ""
	}
	return m[op]
}

// SetDetectedEndpoint records an endpoint for an operation.
func (p *Panel) SetDetectedEndpoint(op, endpoint string) {
	m := map[string]string{}
	if p.DetectedEndpoints != "" {
		_ = json.Unmarshal([]byte(p.DetectedEndpoints), &m)
	}
	m[op] = endpoint
	raw, _ := json.Marshal(m)
	p.DetectedEndpoints = string(raw)
}
