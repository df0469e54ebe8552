package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/model"
)

const subtitleColumns = `id, content_hash, language, status, retry_count, last_error, message_id, time_requested, time_completed`

func scanSubtitle(row rowScanner) (*model.SubtitleJob, error) {
	var (
		sub       model.SubtitleJob
		status    string
		requested int64
		completed sql.NullInt64
	)
	err := row.Scan(&sub.ID, &sub.ContentHash, &sub.Language, &status, &sub.RetryCount,
		&sub.LastError, &sub.MessageID, &requested, &completed)
	if err != nil {
		return nil, err
	}
	sub.Status = model.SubtitleStatus(status)
	sub.TimeRequested = time.Unix(requested, 0)
	sub.TimeCompleted = timeOrNil(completed)
	return &sub, nil
}

// CreateSubtitle inserts a subtitle sub-job; (content_hash, language) is unique.
func (c *CommonDB) CreateSubtitle(ctx context.Context, sub *model.SubtitleJob) error {
	query := c.rebind(`INSERT INTO conversion_subtitles (content_hash, language, status, retry_count,
		last_error, message_id, time_requested, time_completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := c.db.QueryRowContext(ctx, query,
		sub.ContentHash, sub.Language, string(sub.Status), sub.RetryCount,
		sub.LastError, sub.MessageID, sub.TimeRequested.Unix(), unixOrNil(sub.TimeCompleted),
	).Scan(&sub.ID)
	if err != nil {
		return fmt.Errorf("create subtitle %s/%s: %w", sub.ContentHash, sub.Language, c.classify(err, apperrors.ErrInsertFailed))
	}
	return nil
}

// GetSubtitle loads one sub-job.
func (c *CommonDB) GetSubtitle(ctx context.Context, contentHash, language string) (*model.SubtitleJob, error) {
	query := c.rebind(`SELECT ` + subtitleColumns + ` FROM conversion_subtitles WHERE content_hash = ? AND language = ?`)
	sub, err := scanSubtitle(c.db.QueryRowContext(ctx, query, contentHash, language))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Wrapf(apperrors.ErrSubtitleNotFound, "%s/%s", contentHash, language)
	}
	if err != nil {
		return nil, fmt.Errorf("get subtitle: %w", c.classify(err, apperrors.ErrQueryFailed))
	}
	return sub, nil
}

// ListSubtitles returns every sub-job of a conversion, oldest request first.
func (c *CommonDB) ListSubtitles(ctx context.Context, contentHash string) ([]model.SubtitleJob, error) {
	query := c.rebind(`SELECT ` + subtitleColumns + ` FROM conversion_subtitles
		WHERE content_hash = ? ORDER BY time_requested ASC, id ASC`)
	rows, err := c.db.QueryContext(ctx, query, contentHash)
	if err != nil {
		return nil, fmt.Errorf("list subtitles: %w", c.classify(err, apperrors.ErrQueryFailed))
	}
	defer rows.Close()

	subs := make([]model.SubtitleJob, 0)
	for rows.Next() {
		sub, err := scanSubtitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subtitle: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return subs, nil
}

// UpdateSubtitle writes status, bookkeeping and completion time.
func (c *CommonDB) UpdateSubtitle(ctx context.Context, sub *model.SubtitleJob) error {
	query := c.rebind(`UPDATE conversion_subtitles SET status = ?, retry_count = ?, last_error = ?,
		message_id = ?, time_completed = ? WHERE content_hash = ? AND language = ?`)
	res, err := c.db.ExecContext(ctx, query,
		string(sub.Status), sub.RetryCount, sub.LastError, sub.MessageID,
		unixOrNil(sub.TimeCompleted), sub.ContentHash, sub.Language)
	if err != nil {
		return fmt.Errorf("update subtitle %s/%s: %w", sub.ContentHash, sub.Language, c.classify(err, apperrors.ErrUpdateFailed))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.Wrapf(apperrors.ErrSubtitleNotFound, "%s/%s", sub.ContentHash, sub.Language)
	}
	return nil
}

// DeleteSubtitles removes all sub-jobs of a conversion.
func (c *CommonDB) DeleteSubtitles(ctx context.Context, contentHash string) error {
	_, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM conversion_subtitles WHERE content_hash = ?`), contentHash)
	if err != nil {
		return fmt.Errorf("delete subtitles %s: %w", contentHash, c.classify(err, apperrors.ErrUpdateFailed))
	}
	return nil
}
