package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"video-conversion/internal/config"
)

// Area selects the bucket an operation targets.
type Area string

const (
	AreaInput  Area = "input"
	AreaOutput Area = "output"
)

// Store is an S3-style object store split into input and output areas.
type Store interface {
	Upload(ctx context.Context, area Area, key string, body io.Reader, size int64, metadata map[string]string) Result[UploadInfo]
	List(ctx context.Context, area Area, opts ListOptions) Result[ListPage]
	Delete(ctx context.Context, area Area, key string) Result[struct{}]
	DeleteMany(ctx context.Context, area Area, keys []string) Result[[]DeleteResult]
	Exists(ctx context.Context, area Area, key string) Result[bool]
}

type UploadInfo struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	ETag string `json:"etag,omitempty"`
}

type ListOptions struct {
	Prefix            string
	ContinuationToken string
	// Delimiter "/" groups keys below the next slash into Prefixes.
	Delimiter string
	MaxKeys   int
}

type ObjectInfo struct {
	Key          string    `json:"key" xml:"Key"`
	Size         int64     `json:"size" xml:"Size"`
	LastModified time.Time `json:"last_modified" xml:"LastModified"`
}

type ListPage struct {
	Items     []ObjectInfo
	Prefixes  []string
	Truncated bool
	NextToken string
}

type DeleteResult struct {
	Key string
	Err error
}

const defaultMaxKeys = 1000

// ListAll follows continuation tokens until the listing is exhausted.
func ListAll(ctx context.Context, s Store, area Area, opts ListOptions) Result[ListPage] {
	var all ListPage
	for {
		res := s.List(ctx, area, opts)
		page, err := res.Unwrap()
		if err != nil {
			return Failure[ListPage](res.StatusCode, err)
		}
		all.Items = append(all.Items, page.Items...)
		all.Prefixes = append(all.Prefixes, page.Prefixes...)
		if !page.Truncated || page.NextToken == "" {
			return Success(all)
		}
		opts.ContinuationToken = page.NextToken
	}
}

// New builds the store selected by cfg.Backend.
func New(cfg config.StorageConfig, site string, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendSDK:
		return NewMinioStore(cfg, logger)
	case config.BackendHosted:
		return NewProxyStore(cfg, site, nil), nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
