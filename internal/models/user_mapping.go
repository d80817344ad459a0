package models

import (
	"encoding/json"
	"strings"
	"time"
)

// UserMapping binds one or more chat sender identifiers (phone numbers,
// group ids) to a panel username. Created on first self-registration,
// never auto-deleted.
type UserMapping struct {
	ID            uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID        uint       `gorm:"column:user_id;index" json:"user_id"`
	PanelUsername string     `gorm:"column:panel_username;size:200;index" json:"panel_username"`
	Identifiers   string     `gorm:"column:identifiers;type:text" json:"identifiers"` // JSON array
	BotEnabled    bool       `gorm:"column:bot_enabled;default:true" json:"bot_enabled"`
	Verified      bool       `gorm:"column:verified" json:"verified"`
	AutoSuspended bool       `gorm:"column:auto_suspended" json:"auto_suspended"`
	SuspendReason string     `gorm:"column:suspend_reason;size:500" json:"suspend_reason"`
	LastActivity  *time.Time `gorm:"column:last_activity_at" json:"last_activity_at"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (UserMapping) TableName() string {
	return "user_mappings"
}

// IdentifierList decodes the JSON identifier set.
func (m *UserMapping) IdentifierList() []string {
	var ids []string
	if err := json.Unmarshal([]byte(m.Identifiers), &ids); err != nil {
		return nil
	}
	return ids
}

// HasIdentifier reports whether the mapping contains the given sender id.
func (m *UserMapping) HasIdentifier(id string) bool {
	for _, v := range m.IdentifierList() {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(id)) {
			return true
		}
	}
	return false
}

// SetIdentifiers encodes the identifier set back to JSON.
func (m *UserMapping) SetIdentifiers(ids []string) {
	raw, _ := json.Marshal(ids)
	m.Identifiers = string(raw)
}
