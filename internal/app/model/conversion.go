package model

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a conversion job and of its transcoder sub-process.
type Status string

const (
	StatusAccepted    Status = "accepted"
	StatusInProgress  Status = "in_progress"
	StatusFinished    Status = "finished"
	StatusError       Status = "error"
	StatusNotFound    Status = "not_found"
	StatusUploadError Status = "upload_error"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinished, StatusError, StatusNotFound, StatusUploadError:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAccepted, StatusInProgress, StatusFinished, StatusError, StatusNotFound, StatusUploadError:
		return true
	}
	return false
}

// ConversionJob is a request to transcode one uploaded video, identified by the
// hash of its content.
type ConversionJob struct {
	ID               int64           `json:"id" db:"id"`
	ContentHash      string          `json:"content_hash" db:"content_hash"`
	PathHash         string          `json:"path_hash" db:"path_hash"`
	Name             string          `json:"name" db:"name"`
	Status           Status          `json:"status" db:"status"`
	TranscoderStatus Status          `json:"transcoder_status" db:"transcoder_status"`
	AltTranscoder    bool            `json:"alt_transcoder" db:"alt_transcoder"`
	OutputSize       int64           `json:"output_size" db:"output_size"`
	HasHLS           bool            `json:"has_hls" db:"has_hls"`
	MediaInfo        json.RawMessage `json:"media_info,omitempty" db:"media_info"`
	InputDeleted     bool            `json:"input_deleted" db:"input_deleted"`
	TimeCreated      time.Time       `json:"time_created" db:"time_created"`
	TimeModified     time.Time       `json:"time_modified" db:"time_modified"`
	TimeCompleted    *time.Time      `json:"time_completed,omitempty" db:"time_completed"`
}

// TableName returns the table name for ConversionJob
func (ConversionJob) TableName() string {
	return "conversions"
}

// OlderThan reports whether the job has not been modified for at least d.
func (j *ConversionJob) OlderThan(d time.Duration, now time.Time) bool {
	return now.Sub(j.TimeModified) >= d
}
