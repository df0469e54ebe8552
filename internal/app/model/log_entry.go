package model

import (
	"encoding/json"
	"time"
)

type LogType string

const (
	LogInfo  LogType = "INFO"
	LogError LogType = "ERROR"
)

// Subsystems that write to the operator log.
const (
	SubsystemObjectStore = "objectstore"
	SubsystemTranscoder  = "transcoder"
	SubsystemSubtitle    = "subtitle"
	SubsystemQueue       = "queue"
	SubsystemCleanup     = "cleanup"
)

// LogEntry is an operator-facing record of a noteworthy conversion event.
type LogEntry struct {
	ID          int64           `json:"id" db:"id"`
	Type        LogType         `json:"type" db:"type"`
	Subsystem   string          `json:"subsystem" db:"subsystem"`
	ContentHash string          `json:"content_hash,omitempty" db:"content_hash"`
	Detail      json.RawMessage `json:"detail" db:"detail"`
	NotifyAdmin bool            `json:"notify_admin" db:"notify_admin"`
	TimeCreated time.Time       `json:"time_created" db:"time_created"`
}

// TableName returns the table name for LogEntry
func (LogEntry) TableName() string {
	return "conversion_logs"
}
