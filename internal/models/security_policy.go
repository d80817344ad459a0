package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Enumerated policy options. Stored as plain strings so administrators can
// update rows directly.
const (
	ClaimDisabled = "disabled"
	ClaimAuto     = "auto"
	ClaimEmail    = "email"

	GroupSecurityNone     = "none"
	GroupSecurityVerified = "verified"
	GroupSecurityDisabled = "disabled"

	UsernameValidationDisabled = "disabled"
	UsernameValidationAsk      = "ask"
	UsernameValidationStrict   = "strict"

	ActionModeAuto     = "auto"
	ActionModeForward  = "forward"
	ActionModeBoth     = "both"
	ActionModeDisabled = "disabled"
)

// SecurityPolicy holds one reseller's command-pipeline configuration.
// Created with defaults on first access, read on every authorization check.
type SecurityPolicy struct {
	ID     uint `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"column:user_id;index:idx_policy_user,unique" json:"user_id"`

	OrderClaimMode         string `gorm:"column:order_claim_mode;size:20;default:auto" json:"order_claim_mode"`
	GroupSecurityMode      string `gorm:"column:group_security_mode;size:20;default:none" json:"group_security_mode"`
	UsernameValidationMode string `gorm:"column:username_validation_mode;size:20;default:disabled" json:"username_validation_mode"`

	MaxCommandsPerMinute   int `gorm:"column:max_commands_per_minute;default:10" json:"max_commands_per_minute"`
	CommandCooldownSeconds int `gorm:"column:command_cooldown_seconds;default:300" json:"command_cooldown_seconds"`

	RefillMode  string `gorm:"column:refill_mode;size:20;default:auto" json:"refill_mode"`
	CancelMode  string `gorm:"column:cancel_mode;size:20;default:auto" json:"cancel_mode"`
	SpeedUpMode string `gorm:"column:speedup_mode;size:20;default:forward" json:"speedup_mode"`

	// StaffGroupIDs is a JSON array of group identifiers whose members
	// bypass every authorization check.
	StaffGroupIDs string `gorm:"column:staff_group_ids;type:text" json:"staff_group_ids"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (SecurityPolicy) TableName() string {
	return "security_policies"
}

// DefaultSecurityPolicy returns the policy seeded on first access.
func DefaultSecurityPolicy(userID uint) *SecurityPolicy {
	return &SecurityPolicy{
		UserID:                 userID,
		OrderClaimMode:         ClaimAuto,
		GroupSecurityMode:      GroupSecurityNone,
		UsernameValidationMode: UsernameValidationDisabled,
		MaxCommandsPerMinute:   10,
		CommandCooldownSeconds: 300,
		RefillMode:             ActionModeAuto,
		CancelMode:             ActionModeAuto,
		SpeedUpMode:            ActionModeForward,
		StaffGroupIDs:          "[]",
	}
}

// ActionMode returns the configured mode for a mutating command.
func (p *SecurityPolicy) ActionMode(cmd CommandKind) string {
	switch cmd {
	case CommandRefill:
		return p.RefillMode
	case CommandCancel:
		return p.CancelMode
	case CommandSpeedUp:
		return p.SpeedUpMode
	}
	return ActionModeAuto
}

// IsStaffGroup reports whether the given group id is a staff-override group.
func (p *SecurityPolicy) IsStaffGroup(groupID string) bool {
	if strings.TrimSpace(groupID) == "" {
		return false
	}
	var ids []string
	if err := json.Unmarshal([]byte(p.StaffGroupIDs), &ids); err != nil {
		return false
	}
	for _, id := range ids {
		if strings.EqualFold(strings.TrimSpace(id), strings.TrimSpace(groupID)) {
			return true
		}
	}
	return false
}
