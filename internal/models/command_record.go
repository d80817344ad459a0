package models

import "time"

// CommandKind identifies one of the chat-issued order commands.
type CommandKind string

const (
	CommandRefill  CommandKind = "refill"
	CommandCancel  CommandKind = "cancel"
	CommandSpeedUp CommandKind = "speedup"
	CommandStatus  CommandKind = "status"
)

// Mutating reports whether the command changes panel-side state.
func (k CommandKind) Mutating() bool {
	return k != CommandStatus
}

// CommandRecordStatus is write-once-terminal: PROCESSING moves to exactly
// one of SUCCESS or FAILED and is never revisited.
type CommandRecordStatus string

const (
	RecordProcessing CommandRecordStatus = "PROCESSING"
	RecordSuccess    CommandRecordStatus = "SUCCESS"
	RecordFailed     CommandRecordStatus = "FAILED"
)

// CommandRecord is the audit trail: one row per attempted mutating action.
type CommandRecord struct {
	ID          string              `gorm:"column:id;primaryKey;size:36" json:"id"`
	OrderID     uint                `gorm:"column:order_id;index:idx_command_order" json:"order_id"`
	Command     CommandKind         `gorm:"column:command;size:20;index:idx_command_order" json:"command"`
	Status      CommandRecordStatus `gorm:"column:status;size:20" json:"status"`
	RequesterID string              `gorm:"column:requester_id;size:200" json:"requester_id"`
	Platform    string              `gorm:"column:platform;size:20" json:"platform"`
	RawResponse string              `gorm:"column:raw_response;type:text" json:"raw_response"`
	ErrorText   string              `gorm:"column:error_text;type:text" json:"error_text"`
	CreatedAt   time.Time           `gorm:"column:created_at" json:"created_at"`
	FinishedAt  *time.Time          `gorm:"column:finished_at" json:"finished_at"`
}

func (CommandRecord) TableName() string {
	return "command_records"
}
