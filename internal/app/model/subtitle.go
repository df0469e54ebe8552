package model

import (
	"time"

	apperrors "video-conversion/internal/app/errors"
)

// SubtitleStatus is the state of a per-language subtitle sub-job.
type SubtitleStatus string

const (
	SubtitlePending    SubtitleStatus = "pending"
	SubtitleProcessing SubtitleStatus = "processing"
	SubtitleCompleted  SubtitleStatus = "completed"
	SubtitleFailed     SubtitleStatus = "failed"
)

// Terminal reports whether the subtitle sub-job is done.
func (s SubtitleStatus) Terminal() bool {
	return s == SubtitleCompleted || s == SubtitleFailed
}

// Open reports whether the sub-job still awaits a result.
func (s SubtitleStatus) Open() bool {
	return s == SubtitlePending || s == SubtitleProcessing
}

// CanTransition validates a move from s to next.
// A request for the current state returns (false, nil): nothing to do.
func (s SubtitleStatus) CanTransition(next SubtitleStatus) (bool, error) {
	if s == next {
		return false, nil
	}
	switch s {
	case SubtitlePending:
		if next == SubtitleProcessing || next == SubtitleFailed {
			return true, nil
		}
	case SubtitleProcessing:
		if next == SubtitleCompleted || next == SubtitleFailed {
			return true, nil
		}
	}
	return false, apperrors.Wrapf(apperrors.ErrInvalidTransition, "%s -> %s", s, next)
}

// SubtitleJob tracks subtitle generation for one language of a conversion.
type SubtitleJob struct {
	ID            int64          `json:"id" db:"id"`
	ContentHash   string         `json:"content_hash" db:"content_hash"`
	Language      string         `json:"language" db:"language"`
	Status        SubtitleStatus `json:"status" db:"status"`
	RetryCount    int            `json:"retry_count" db:"retry_count"`
	LastError     string         `json:"last_error,omitempty" db:"last_error"`
	MessageID     string         `json:"message_id,omitempty" db:"message_id"`
	TimeRequested time.Time      `json:"time_requested" db:"time_requested"`
	TimeCompleted *time.Time     `json:"time_completed,omitempty" db:"time_completed"`
}

// TableName returns the table name for SubtitleJob
func (SubtitleJob) TableName() string {
	return "conversion_subtitles"
}
