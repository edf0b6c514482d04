package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketResponses = []byte("responses")

// Store persists responses by cache key.
type Store interface {
	Get(key string) (Response, bool, error)
	Put(key string, resp Response) error
	Close() error
}

// cachedEntry is the stored form of a Response.
type cachedEntry struct {
	Text         string    `json:"text"`
	Model        string    `json:"model"`
	StopReason   string    `json:"stop_reason,omitempty"`
	InputTokens  int       `json:"input_tokens,omitempty"`
	OutputTokens int       `json:"output_tokens,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
}

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// NewBoltStore opens (creating if needed) a BoltDB response cache at path.
func NewBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResponses)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

// Get loads the response stored under key.
func (s *BoltStore) Get(key string) (Response, bool, error) {
	var entry cachedEntry
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}

		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil || !found {
		return Response{}, false, err
	}

	return entry.response(), true, nil
}

// Put stores resp under key.
func (s *BoltStore) Put(key string, resp Response) error {
	data, err := json.Marshal(newCachedEntry(resp))
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(key), data)
	})
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.path
}

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]cachedEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]cachedEntry)}
}

// Get returns the response stored under key.
func (s *MemoryStore) Get(key string) (Response, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return Response{}, false, nil
	}
	return entry.response(), true, nil
}

// Put stores resp under key.
func (s *MemoryStore) Put(key string, resp Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = newCachedEntry(resp)
	return nil
}

// Len returns the number of stored responses.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}

func newCachedEntry(resp Response) cachedEntry {
	return cachedEntry{
		Text:         resp.Text,
		Model:        resp.Model,
		StopReason:   resp.StopReason,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		StoredAt:     time.Now().UTC(),
	}
}

func (e cachedEntry) response() Response {
	return Response{
		Text:         e.Text,
		Model:        e.Model,
		StopReason:   e.StopReason,
		InputTokens:  e.InputTokens,
		OutputTokens: e.OutputTokens,
	}
}
