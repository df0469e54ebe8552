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

const conversionColumns = `id, content_hash, path_hash, name, status, transcoder_status, alt_transcoder,
	output_size, has_hls, media_info, input_deleted, time_created, time_modified, time_completed`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversion(row rowScanner) (*model.ConversionJob, error) {
	var (
		job                    model.ConversionJob
		mediaInfo              []byte
		created, modified      int64
		completed              sql.NullInt64
		status, transcoderStat string
	)
	err := row.Scan(&job.ID, &job.ContentHash, &job.PathHash, &job.Name, &status, &transcoderStat,
		&job.AltTranscoder, &job.OutputSize, &job.HasHLS, &mediaInfo, &job.InputDeleted,
		&created, &modified, &completed)
	if err != nil {
		return nil, err
	}
	job.Status = model.Status(status)
	job.TranscoderStatus = model.Status(transcoderStat)
	if len(mediaInfo) > 0 {
		job.MediaInfo = append([]byte(nil), mediaInfo...)
	}
	job.TimeCreated = time.Unix(created, 0)
	job.TimeModified = time.Unix(modified, 0)
	job.TimeCompleted = timeOrNil(completed)
	return &job, nil
}

// CreateJob inserts a new conversion job and fills in its ID.
func (c *CommonDB) CreateJob(ctx context.Context, job *model.ConversionJob) error {
	query := c.rebind(`INSERT INTO conversions (content_hash, path_hash, name, status, transcoder_status,
		alt_transcoder, output_size, has_hls, media_info, input_deleted, time_created, time_modified, time_completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := c.db.QueryRowContext(ctx, query,
		job.ContentHash, job.PathHash, job.Name, string(job.Status), string(job.TranscoderStatus),
		job.AltTranscoder, job.OutputSize, job.HasHLS, string(job.MediaInfo), job.InputDeleted,
		job.TimeCreated.Unix(), job.TimeModified.Unix(), unixOrNil(job.TimeCompleted),
	).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("create conversion %s: %w", job.ContentHash, c.classify(err, apperrors.ErrInsertFailed))
	}
	return nil
}

// GetJob loads a job by content hash.
func (c *CommonDB) GetJob(ctx context.Context, contentHash string) (*model.ConversionJob, error) {
	query := c.rebind(`SELECT ` + conversionColumns + ` FROM conversions WHERE content_hash = ?`)
	job, err := scanConversion(c.db.QueryRowContext(ctx, query, contentHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Wrap(apperrors.ErrJobNotFound, contentHash)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversion %s: %w", contentHash, c.classify(err, apperrors.ErrQueryFailed))
	}
	return job, nil
}

// ListByStatus returns jobs with the given status, newest first.
func (c *CommonDB) ListByStatus(ctx context.Context, status model.Status, limit int) ([]model.ConversionJob, error) {
	query := c.rebind(`SELECT ` + conversionColumns + ` FROM conversions
		WHERE status = ? ORDER BY time_created DESC, id DESC LIMIT ?`)
	return c.queryConversions(ctx, query, string(status), limit)
}

// ListReconcilable returns jobs the reconciliation pass must look at.
func (c *CommonDB) ListReconcilable(ctx context.Context, limit int) ([]model.ConversionJob, error) {
	query := c.rebind(`SELECT ` + conversionColumns + ` FROM conversions c
		WHERE c.status = ?
		   OR (c.status = ? AND EXISTS (
				SELECT 1 FROM conversion_subtitles s
				WHERE s.content_hash = c.content_hash AND s.status IN (?, ?)))
		ORDER BY c.time_modified ASC, c.id ASC LIMIT ?`)
	return c.queryConversions(ctx, query,
		string(model.StatusInProgress), string(model.StatusFinished),
		string(model.SubtitlePending), string(model.SubtitleProcessing), limit)
}

func (c *CommonDB) queryConversions(ctx context.Context, query string, args ...interface{}) ([]model.ConversionJob, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", c.classify(err, apperrors.ErrQueryFailed))
	}
	defer rows.Close()

	jobs := make([]model.ConversionJob, 0)
	for rows.Next() {
		job, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return jobs, nil
}

// UpdateJob writes every mutable column of job.
func (c *CommonDB) UpdateJob(ctx context.Context, job *model.ConversionJob) error {
	query := c.rebind(`UPDATE conversions SET name = ?, status = ?, transcoder_status = ?, alt_transcoder = ?,
		output_size = ?, has_hls = ?, media_info = ?, input_deleted = ?, time_modified = ?, time_completed = ?
		WHERE content_hash = ?`)

	res, err := c.db.ExecContext(ctx, query,
		job.Name, string(job.Status), string(job.TranscoderStatus), job.AltTranscoder,
		job.OutputSize, job.HasHLS, string(job.MediaInfo), job.InputDeleted,
		job.TimeModified.Unix(), unixOrNil(job.TimeCompleted), job.ContentHash)
	if err != nil {
		return fmt.Errorf("update conversion %s: %w", job.ContentHash, c.classify(err, apperrors.ErrUpdateFailed))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.Wrap(apperrors.ErrJobNotFound, job.ContentHash)
	}
	return nil
}

// DeleteJob removes the job row.
func (c *CommonDB) DeleteJob(ctx context.Context, contentHash string) error {
	_, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM conversions WHERE content_hash = ?`), contentHash)
	if err != nil {
		return fmt.Errorf("delete conversion %s: %w", contentHash, c.classify(err, apperrors.ErrUpdateFailed))
	}
	return nil
}

// ListAfter pages through all jobs by ascending ID.
func (c *CommonDB) ListAfter(ctx context.Context, afterID int64, limit int) ([]model.ConversionJob, error) {
	query := c.rebind(`SELECT ` + conversionColumns + ` FROM conversions WHERE id > ? ORDER BY id ASC LIMIT ?`)
	return c.queryConversions(ctx, query, afterID, limit)
}
