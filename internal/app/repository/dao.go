package repository

import (
	"context"
	"time"

	"video-conversion/internal/app/model"
)

// ConversionDAO persists conversion jobs.
type ConversionDAO interface {
	// CreateJob inserts a job; a concurrent duplicate yields an error matching ErrDuplicateKey.
	CreateJob(ctx context.Context, job *model.ConversionJob) error
	GetJob(ctx context.Context, contentHash string) (*model.ConversionJob, error)
	// ListByStatus returns jobs in the given status, newest first.
	ListByStatus(ctx context.Context, status model.Status, limit int) ([]model.ConversionJob, error)
	// ListReconcilable returns in-progress jobs and finished jobs with open subtitle sub-jobs.
	ListReconcilable(ctx context.Context, limit int) ([]model.ConversionJob, error)
	UpdateJob(ctx context.Context, job *model.ConversionJob) error
	DeleteJob(ctx context.Context, contentHash string) error
}

// SubtitleDAO persists per-language subtitle sub-jobs.
type SubtitleDAO interface {
	CreateSubtitle(ctx context.Context, sub *model.SubtitleJob) error
	GetSubtitle(ctx context.Context, contentHash, language string) (*model.SubtitleJob, error)
	// ListSubtitles returns sub-jobs oldest request first.
	ListSubtitles(ctx context.Context, contentHash string) ([]model.SubtitleJob, error)
	UpdateSubtitle(ctx context.Context, sub *model.SubtitleJob) error
	DeleteSubtitles(ctx context.Context, contentHash string) error
}

// MessageDAO persists deduplicated queue messages.
type MessageDAO interface {
	// InsertMessage stores a message; a repeated payload hash yields ErrDuplicateKey.
	InsertMessage(ctx context.Context, msg *model.StoredMessage) error
	// PendingMessages returns unprocessed messages for the given processes, oldest first.
	PendingMessages(ctx context.Context, contentHash string, processes []model.Process) ([]model.StoredMessage, error)
	MarkProcessed(ctx context.Context, ids []int64) error
	DeleteMessages(ctx context.Context, contentHash string) error
	PurgeMessages(ctx context.Context, before time.Time) (int64, error)
}

// LogDAO persists operator log entries.
type LogDAO interface {
	InsertLog(ctx context.Context, entry *model.LogEntry) error
	ListLogs(ctx context.Context, contentHash string, limit int) ([]model.LogEntry, error)
}

// Store is the full record store used by the conversion engine.
type Store interface {
	ConversionDAO
	SubtitleDAO
	MessageDAO
	LogDAO
	Migrate(ctx context.Context) error
	Close() error
}
