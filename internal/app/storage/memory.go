package storage

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "video-conversion/internal/app/errors"
)

// MemoryStore is an in-process Store for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[Area]map[string]memoryObject
	// FailUploads makes every Upload fail with the given status code when non-zero.
	FailUploads int
}

type memoryObject struct {
	data     []byte
	metadata map[string]string
	modified time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[Area]map[string]memoryObject{}}
}

// Put seeds an object directly.
func (m *MemoryStore) Put(area Area, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[area] == nil {
		m.objects[area] = map[string]memoryObject{}
	}
	m.objects[area][key] = memoryObject{data: data, modified: time.Now()}
}

// Metadata returns the metadata stored with an object.
func (m *MemoryStore) Metadata(area Area, key string) (map[string]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[area][key]
	return obj.metadata, ok
}

func (m *MemoryStore) Upload(ctx context.Context, area Area, key string, body io.Reader, size int64, metadata map[string]string) Result[UploadInfo] {
	m.mu.RLock()
	fail := m.FailUploads
	m.mu.RUnlock()
	if fail != 0 {
		return Failure[UploadInfo](fail, apperrors.Wrapf(apperrors.ErrRequestFailed, "upload %s: status %d", key, fail))
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return Failure[UploadInfo](0, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[area] == nil {
		m.objects[area] = map[string]memoryObject{}
	}
	m.objects[area][key] = memoryObject{data: data, metadata: metadata, modified: time.Now()}
	return Success(UploadInfo{Key: key, Size: int64(len(data))})
}

func (m *MemoryStore) List(ctx context.Context, area Area, opts ListOptions) Result[ListPage] {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	objects := m.objects[area]
	keys := make([]string, 0, len(objects))
	for k := range objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var (
		page     ListPage
		seen     int
		prefixes = map[string]bool{}
	)
	for _, k := range keys {
		entry := k
		isPrefix := false
		if opts.Delimiter != "" {
			rest := strings.TrimPrefix(k, opts.Prefix)
			if i := strings.Index(rest, opts.Delimiter); i >= 0 {
				entry = opts.Prefix + rest[:i+len(opts.Delimiter)]
				isPrefix = true
			}
		}
		if entry <= opts.ContinuationToken || prefixes[entry] {
			continue
		}
		if seen == maxKeys {
			page.Truncated = true
			break
		}
		if isPrefix {
			prefixes[entry] = true
			page.Prefixes = append(page.Prefixes, entry)
		} else {
			obj := objects[k]
			page.Items = append(page.Items, ObjectInfo{Key: k, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
		page.NextToken = entry
		seen++
	}
	if !page.Truncated {
		page.NextToken = ""
	}
	return Success(page)
}

func (m *MemoryStore) Delete(ctx context.Context, area Area, key string) Result[struct{}] {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects[area], key)
	return Success(struct{}{})
}

func (m *MemoryStore) DeleteMany(ctx context.Context, area Area, keys []string) Result[[]DeleteResult] {
	results := make([]DeleteResult, 0, len(keys))
	for _, k := range keys {
		m.Delete(ctx, area, k)
		results = append(results, DeleteResult{Key: k})
	}
	return Success(results)
}

func (m *MemoryStore) Exists(ctx context.Context, area Area, key string) Result[bool] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[area][key]
	return Success(ok)
}
