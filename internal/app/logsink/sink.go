// Package logsink writes operator log entries to the record store and mirrors them to zap.
package logsink

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"video-conversion/internal/app/model"
)

// Writer persists log entries.
type Writer interface {
	InsertLog(ctx context.Context, entry *model.LogEntry) error
}

// Detail is the JSON body of a log entry.
type Detail map[string]interface{}

// Sink records noteworthy events. Persistence failures are reported to zap only; the
// operator log never fails the operation that produced the event.
type Sink struct {
	writer Writer
	logger *zap.Logger
	now    func() time.Time
}

func New(writer Writer, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{writer: writer, logger: logger, now: time.Now}
}

// Info records an informational event.
func (s *Sink) Info(ctx context.Context, subsystem, contentHash string, detail Detail) {
	s.record(ctx, model.LogInfo, subsystem, contentHash, detail, false)
}

// Error records a failure. notifyAdmin flags it for operator attention.
func (s *Sink) Error(ctx context.Context, subsystem, contentHash string, detail Detail, notifyAdmin bool) {
	s.record(ctx, model.LogError, subsystem, contentHash, detail, notifyAdmin)
}

func (s *Sink) record(ctx context.Context, typ model.LogType, subsystem, contentHash string, detail Detail, notify bool) {
	fields := []zap.Field{
		zap.String("subsystem", subsystem),
		zap.String("content_hash", contentHash),
		zap.Any("detail", detail),
	}
	if typ == model.LogError {
		s.logger.Error("conversion event", append(fields, zap.Bool("notify_admin", notify))...)
	} else {
		s.logger.Info("conversion event", fields...)
	}

	if s.writer == nil {
		return
	}
	body, err := json.Marshal(detail)
	if err != nil {
		s.logger.Warn("failed to encode log detail", zap.Error(err))
		body = []byte("{}")
	}
	entry := &model.LogEntry{
		Type:        typ,
		Subsystem:   subsystem,
		ContentHash: contentHash,
		Detail:      body,
		NotifyAdmin: notify,
		TimeCreated: s.now(),
	}
	if err := s.writer.InsertLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist log entry",
			zap.String("subsystem", subsystem),
			zap.String("content_hash", contentHash),
			zap.Error(err))
	}
}
