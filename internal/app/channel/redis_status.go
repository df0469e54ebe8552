package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"video-conversion/internal/app/model"
	"video-conversion/internal/config"
)

// RedisStatusStore reads status hashes stored at {prefix}:{content_hash}:{tenant_id}.
type RedisStatusStore struct {
	client    redis.Cmdable
	keyPrefix string
	tenantID  string
}

var _ StatusStore = (*RedisStatusStore)(nil)

func NewRedisStatusStore(cfg config.StatusStoreConfig, tenantID string) *RedisStatusStore {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		ReadTimeout: cfg.Timeout,
	})
	return NewRedisStatusStoreWithClient(client, cfg.KeyPrefix, tenantID)
}

// NewRedisStatusStoreWithClient wraps an existing client.
func NewRedisStatusStoreWithClient(client redis.Cmdable, keyPrefix, tenantID string) *RedisStatusStore {
	return &RedisStatusStore{client: client, keyPrefix: keyPrefix, tenantID: tenantID}
}

// Key returns the composite key of a content hash.
func (s *RedisStatusStore) Key(contentHash string) string {
	return fmt.Sprintf("%s:%s:%s", s.keyPrefix, contentHash, s.tenantID)
}

func (s *RedisStatusStore) GetStatus(ctx context.Context, contentHash string) (*model.StatusRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.Key(contentHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("get status %s: %w", contentHash, err)
	}
	return recordFromHash(contentHash, s.tenantID, fields), nil
}

// recordFromHash converts a status hash; a hash without a status field counts as absent.
func recordFromHash(contentHash, tenantID string, fields map[string]string) *model.StatusRecord {
	status := fields["status"]
	if status == "" {
		return nil
	}
	rec := &model.StatusRecord{
		ContentHash:  contentHash,
		TenantID:     tenantID,
		Status:       status,
		JobID:        fields["job_id"],
		ErrorMessage: fields["error_message"],
	}
	if ts := fields["updated_at"]; ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.UpdatedAt = t
		}
	}
	return rec
}
