package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	apperrors "video-conversion/internal/app/errors"
	"video-conversion/internal/config"
)

// MinioStore implements Store against any S3-compatible endpoint.
type MinioStore struct {
	client  *minio.Client
	buckets map[Area]string
	logger  *zap.Logger
}

var _ Store = (*MinioStore)(nil)

// NewMinioStore creates a new S3 client with static credentials.
func NewMinioStore(cfg config.StorageConfig, logger *zap.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &MinioStore{
		client: client,
		buckets: map[Area]string{
			AreaInput:  cfg.InputBucket,
			AreaOutput: cfg.OutputBucket,
		},
		logger: logger,
	}, nil
}

// EnsureBuckets creates missing buckets; used against local MinIO deployments.
func (s *MinioStore) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range s.buckets {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket existence: %w", err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
			s.logger.Info("created bucket", zap.String("bucket", bucket))
		}
	}
	return nil
}

func (s *MinioStore) Upload(ctx context.Context, area Area, key string, body io.Reader, size int64, metadata map[string]string) Result[UploadInfo] {
	info, err := s.client.PutObject(ctx, s.buckets[area], key, body, size, minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: metadata,
	})
	if err != nil {
		return failureFrom[UploadInfo](err)
	}
	return Success(UploadInfo{Key: key, Size: info.Size, ETag: info.ETag})
}

func (s *MinioStore) List(ctx context.Context, area Area, opts ListOptions) Result[ListPage] {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	// the SDK streams across pages; cancel once a page is full
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recursive := opts.Delimiter == ""
	objects := s.client.ListObjects(ctx, s.buckets[area], minio.ListObjectsOptions{
		Prefix:     opts.Prefix,
		Recursive:  recursive,
		StartAfter: opts.ContinuationToken,
		MaxKeys:    maxKeys,
	})

	var (
		page ListPage
		last string
		seen int
	)
	for obj := range objects {
		if obj.Err != nil {
			return failureFrom[ListPage](obj.Err)
		}
		if seen == maxKeys {
			page.Truncated = true
			page.NextToken = last
			break
		}
		if !recursive && strings.HasSuffix(obj.Key, "/") {
			page.Prefixes = append(page.Prefixes, obj.Key)
		} else {
			page.Items = append(page.Items, ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
		}
		last = obj.Key
		seen++
	}
	return Success(page)
}

func (s *MinioStore) Delete(ctx context.Context, area Area, key string) Result[struct{}] {
	if err := s.client.RemoveObject(ctx, s.buckets[area], key, minio.RemoveObjectOptions{}); err != nil {
		return failureFrom[struct{}](err)
	}
	return Success(struct{}{})
}

func (s *MinioStore) DeleteMany(ctx context.Context, area Area, keys []string) Result[[]DeleteResult] {
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	failed := make(map[string]error)
	for rerr := range s.client.RemoveObjects(ctx, s.buckets[area], objects, minio.RemoveObjectsOptions{}) {
		failed[rerr.ObjectName] = rerr.Err
	}

	results := make([]DeleteResult, 0, len(keys))
	for _, k := range keys {
		results = append(results, DeleteResult{Key: k, Err: failed[k]})
	}
	if len(failed) > 0 {
		r := Success(results)
		r.Err = fmt.Errorf("%d of %d deletes failed: %w", len(failed), len(keys), apperrors.ErrRequestFailed)
		return r
	}
	return Success(results)
}

func (s *MinioStore) Exists(ctx context.Context, area Area, key string) Result[bool] {
	_, err := s.client.StatObject(ctx, s.buckets[area], key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return Success(false)
		}
		return failureFrom[bool](err)
	}
	return Success(true)
}

func failureFrom[T any](err error) Result[T] {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound {
		err = apperrors.Mark(err, apperrors.ErrObjectNotFound)
	}
	return Failure[T](resp.StatusCode, err)
}
