package blob

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory keeps blobs in process memory.
type Memory struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]*Object
}

var _ Store = (*Memory)(nil)

func NewMemory(baseURL string) *Memory {
	return &Memory{
		baseURL: baseURL,
		objects: make(map[string]*Object),
	}
}

func (m *Memory) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[path] = &Object{
		Path:        path,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
		CreatedAt:   time.Now().UTC(),
	}
	return publicURL(m.baseURL, path), nil
}

func (m *Memory) Get(ctx context.Context, path string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", path, ErrNotFound)
	}
	c := *obj
	return &c, nil
}
