package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Process names the pipeline stage a status message reports on.
type Process string

const (
	ProcessTranscoder Process = "transcoder"
	ProcessSubtitle   Process = "subtitle"
)

// Outcome is the normalized meaning of a raw status string.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeProgress
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProgress:
		return "progress"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	}
	return "unknown"
}

// ParseOutcome maps the status vocabulary used by both channels.
func ParseOutcome(raw string) Outcome {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "COMPLETE", "COMPLETED", "SUCCESS", "SUCCEEDED":
		return OutcomeSuccess
	case "ERROR", "FAILED", "FAILURE":
		return OutcomeFailure
	case "PROCESSING", "PROGRESSING", "IN_PROGRESS", "SUBMITTED", "STARTED":
		return OutcomeProgress
	}
	return OutcomeUnknown
}

// StatusRecord is the key-value channel's current status for one (content hash, tenant) pair.
type StatusRecord struct {
	ContentHash  string    `json:"content_hash"`
	TenantID     string    `json:"tenant_id"`
	Status       string    `json:"status"`
	JobID        string    `json:"job_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// QueueMessage is one status notification received from the queue channel.
type QueueMessage struct {
	ID        string          `json:"id"`
	Process   Process         `json:"process"`
	Status    string          `json:"status"`
	ObjectKey string          `json:"key"`
	Site      string          `json:"site,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	SentAt    time.Time       `json:"timestamp"`
}

// ContentHash extracts the hash segment of "{tenant}/{hash}/...".
func (m QueueMessage) ContentHash() string {
	parts := strings.Split(strings.Trim(m.ObjectKey, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// TenantSegment returns the first segment of the object key.
func (m QueueMessage) TenantSegment() string {
	key := strings.Trim(m.ObjectKey, "/")
	if i := strings.Index(key, "/"); i >= 0 {
		return key[:i]
	}
	return key
}

// StoredMessage is a deduplicated queue message persisted for later application.
type StoredMessage struct {
	ID          int64           `json:"id" db:"id"`
	MessageID   string          `json:"message_id" db:"message_id"`
	PayloadHash string          `json:"payload_hash" db:"payload_hash"`
	ContentHash string          `json:"content_hash" db:"content_hash"`
	Process     Process         `json:"process" db:"process"`
	Status      string          `json:"status" db:"status"`
	ObjectKey   string          `json:"object_key" db:"object_key"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	SentAt      time.Time       `json:"sent_at" db:"sent_at"`
	TimeCreated time.Time       `json:"time_created" db:"time_created"`
	Processed   bool            `json:"processed" db:"processed"`
}

// TableName returns the table name for StoredMessage
func (StoredMessage) TableName() string {
	return "conversion_messages"
}

// MessagePayload is the optional detail carried inside a queue message.
type MessagePayload struct {
	JobID        string   `json:"job_id,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	TargetLang   string   `json:"target_lang,omitempty"`
	TargetLangs  []string `json:"target_langs,omitempty"`
	Language     string   `json:"language,omitempty"`
}

// Languages returns every language named by the payload, in order.
func (p MessagePayload) Languages() []string {
	var langs []string
	seen := map[string]bool{}
	add := func(l string) {
		l = strings.TrimSpace(l)
		if l != "" && !seen[l] {
			seen[l] = true
			langs = append(langs, l)
		}
	}
	add(p.TargetLang)
	for _, l := range p.TargetLangs {
		add(l)
	}
	add(p.Language)
	return langs
}

// DecodePayload parses the message payload; malformed payloads yield an empty value.
func (m StoredMessage) DecodePayload() (MessagePayload, error) {
	var p MessagePayload
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return p, nil
	}
	err := json.Unmarshal(m.Payload, &p)
	return p, err
}
