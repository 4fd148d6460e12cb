package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/signalfeed/internal/content"
)

// MemoryStore keeps records in memory, optionally snapshotted to a JSON file.
type MemoryStore struct {
	filePath string
	items    map[string]content.Record
	byURL    map[string]string // kind|url -> id
	mu       sync.RWMutex
	saveMu   sync.Mutex // one snapshot write at a time
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store. An empty filePath disables persistence.
func NewMemoryStore(filePath string) *MemoryStore {
	return &MemoryStore{
		filePath: filePath,
		items:    make(map[string]content.Record),
		byURL:    make(map[string]string),
		now:      time.Now,
	}
}

func urlKey(kind content.Kind, url string) string {
	return string(kind) + "|" + strings.TrimSpace(url)
}

// Load loads existing records from file
func (ms *MemoryStore) Load() error {
	if ms.filePath == "" {
		return nil
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, err := os.Stat(ms.filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(ms.filePath)
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var records []content.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal store: %w", err)
	}

	for _, r := range records {
		ms.items[r.ID] = r
		ms.byURL[urlKey(r.Kind, r.SourceURL)] = r.ID
	}
	return nil
}

// Save writes all records to file
func (ms *MemoryStore) Save() error {
	if ms.filePath == "" {
		return nil
	}
	ms.saveMu.Lock()
	defer ms.saveMu.Unlock()

	ms.mu.RLock()
	records := make([]content.Record, 0, len(ms.items))
	for _, r := range ms.items {
		records = append(records, r)
	}
	ms.mu.RUnlock()
	sortRecords(records, OrderCreated)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(ms.filePath), filepath.Base(ms.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), ms.filePath); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func (ms *MemoryStore) Create(_ context.Context, r *content.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	key := urlKey(r.Kind, r.SourceURL)
	if _, exists := ms.byURL[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.SourceURL)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, exists := ms.items[r.ID]; exists {
		return fmt.Errorf("%w: id %s", ErrDuplicate, r.ID)
	}
	now := ms.now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = content.StatusDraft
	}

	ms.items[r.ID] = *r
	ms.byURL[key] = r.ID
	return nil
}

func (ms *MemoryStore) Update(_ context.Context, r *content.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	old, ok := ms.items[r.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, r.ID)
	}
	newKey := urlKey(r.Kind, r.SourceURL)
	if oldKey := urlKey(old.Kind, old.SourceURL); oldKey != newKey {
		if _, taken := ms.byURL[newKey]; taken {
			return fmt.Errorf("%w: %s", ErrDuplicate, r.SourceURL)
		}
		delete(ms.byURL, oldKey)
		ms.byURL[newKey] = r.ID
	}
	r.UpdatedAt = ms.now().UTC()
	ms.items[r.ID] = *r
	return nil
}

func (ms *MemoryStore) Get(_ context.Context, id string) (*content.Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	r, ok := ms.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &r, nil
}

func (ms *MemoryStore) FindByURL(_ context.Context, kind content.Kind, url string) (*content.Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	id, ok := ms.byURL[urlKey(kind, url)]
	if !ok {
		return nil, ErrNotFound
	}
	r := ms.items[id]
	return &r, nil
}

func (ms *MemoryStore) FindByTitleSource(_ context.Context, kind content.Kind, title, source string) (*content.Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, r := range ms.items {
		if r.Kind == kind && r.Title == title && r.SourceName == source {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (ms *MemoryStore) List(_ context.Context, q Query) ([]content.Record, error) {
	ms.mu.RLock()
	var out []content.Record
	for _, r := range ms.items {
		if q.matches(&r) {
			out = append(out, r)
		}
	}
	ms.mu.RUnlock()

	sortRecords(out, q.Order)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (ms *MemoryStore) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	r, ok := ms.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(ms.items, id)
	delete(ms.byURL, urlKey(r.Kind, r.SourceURL))
	return nil
}

// Len returns the number of stored records.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.items)
}
