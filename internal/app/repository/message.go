package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/app/model"
)

// InsertMessage stores a queue message keyed by its payload hash.
func (c *CommonDB) InsertMessage(ctx context.Context, msg *model.StoredMessage) error {
	query := c.rebind(`INSERT INTO conversion_messages (message_id, payload_hash, content_hash, process,
		status, object_key, payload, sent_at, time_created, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := c.db.QueryRowContext(ctx, query,
		msg.MessageID, msg.PayloadHash, msg.ContentHash, string(msg.Process), msg.Status,
		msg.ObjectKey, string(msg.Payload), msg.SentAt.Unix(), msg.TimeCreated.Unix(), msg.Processed,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert message %s: %w", msg.PayloadHash, c.classify(err, apperrors.ErrInsertFailed))
	}
	return nil
}

// PendingMessages returns unprocessed messages of the given processes, oldest first.
func (c *CommonDB) PendingMessages(ctx context.Context, contentHash string, processes []model.Process) ([]model.StoredMessage, error) {
	if len(processes) == 0 {
		return nil, nil
	}
	query := c.rebind(fmt.Sprintf(`SELECT id, message_id, payload_hash, content_hash, process, status,
		object_key, payload, sent_at, time_created, processed
		FROM conversion_messages
		WHERE content_hash = ? AND processed = ? AND process IN (%s)
		ORDER BY sent_at ASC, id ASC`, markers(len(processes))))

	args := []interface{}{contentHash, false}
	args = append(args, lo.ToAnySlice(lo.Map(processes, func(p model.Process, _ int) string { return string(p) }))...)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pending messages: %w", c.classify(err, apperrors.ErrQueryFailed))
	}
	defer rows.Close()

	msgs := make([]model.StoredMessage, 0)
	for rows.Next() {
		var (
			m                 model.StoredMessage
			process           string
			payload           []byte
			sentAt, createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.MessageID, &m.PayloadHash, &m.ContentHash, &process, &m.Status,
			&m.ObjectKey, &payload, &sentAt, &createdAt, &m.Processed); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Process = model.Process(process)
		if len(payload) > 0 {
			m.Payload = append([]byte(nil), payload...)
		}
		m.SentAt = time.Unix(sentAt, 0)
		m.TimeCreated = time.Unix(createdAt, 0)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return msgs, nil
}

// MarkProcessed flags messages as applied.
func (c *CommonDB) MarkProcessed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := c.rebind(fmt.Sprintf(`UPDATE conversion_messages SET processed = ? WHERE id IN (%s)`, markers(len(ids))))
	args := append([]interface{}{true}, lo.ToAnySlice(ids)...)
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark messages processed: %w", c.classify(err, apperrors.ErrUpdateFailed))
	}
	return nil
}

// DeleteMessages removes all stored messages of a conversion.
func (c *CommonDB) DeleteMessages(ctx context.Context, contentHash string) error {
	_, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM conversion_messages WHERE content_hash = ?`), contentHash)
	if err != nil {
		return fmt.Errorf("delete messages %s: %w", contentHash, c.classify(err, apperrors.ErrUpdateFailed))
	}
	return nil
}

// PurgeMessages deletes messages stored before the cutoff that are processed or can no
// longer be applied, because their content hash has no open job and no open subtitle.
func (c *CommonDB) PurgeMessages(ctx context.Context, before time.Time) (int64, error) {
	query := c.rebind(`DELETE FROM conversion_messages
		WHERE time_created < ? AND (processed = ? OR content_hash NOT IN (
			SELECT content_hash FROM conversions WHERE status IN (?, ?)
			UNION
			SELECT content_hash FROM conversion_subtitles WHERE status IN (?, ?)))`)
	res, err := c.db.ExecContext(ctx, query, before.Unix(), true,
		string(model.StatusAccepted), string(model.StatusInProgress), string(model.SubtitlePending), string(model.SubtitleProcessing))
	if err != nil {
		return 0, fmt.Errorf("purge messages: %w", c.classify(err, apperrors.ErrUpdateFailed))
	}
	return res.RowsAffected()
}
