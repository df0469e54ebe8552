package repository

import (
	"context"
	"fmt"
	"time"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/model"
)

// InsertLog appends an operator log entry.
func (c *CommonDB) InsertLog(ctx context.Context, entry *model.LogEntry) error {
	detail := string(entry.Detail)
	if detail == "" {
		detail = "{}"
	}
	query := c.rebind(`INSERT INTO conversion_logs (type, subsystem, content_hash, detail, notify_admin, time_created)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	err := c.db.QueryRowContext(ctx, query,
		string(entry.Type), entry.Subsystem, entry.ContentHash, detail, entry.NotifyAdmin, entry.TimeCreated.Unix(),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert log: %w", c.classify(err, apperrors.ErrInsertFailed))
	}
	return nil
}

// ListLogs returns the latest entries, optionally filtered by content hash.
func (c *CommonDB) ListLogs(ctx context.Context, contentHash string, limit int) ([]model.LogEntry, error) {
	query := `SELECT id, type, subsystem, content_hash, detail, notify_admin, time_created FROM conversion_logs`
	args := []interface{}{}
	if contentHash != "" {
		query += ` WHERE content_hash = ?`
		args = append(args, contentHash)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, c.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", c.classify(err, apperrors.ErrQueryFailed))
	}
	defer rows.Close()

	entries := make([]model.LogEntry, 0)
	for rows.Next() {
		var (
			e         model.LogEntry
			typ       string
			detail    []byte
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &typ, &e.Subsystem, &e.ContentHash, &detail, &e.NotifyAdmin, &createdAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		e.Type = model.LogType(typ)
		e.Detail = append([]byte(nil), detail...)
		e.TimeCreated = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}
