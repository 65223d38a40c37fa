// Package cache provides a flat key to JSON document store, the local
// copy the service renders from when the remote sync service cannot be read.
package cache

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Well-known document keys.
const (
	KeyRequirements = "requirements"
	KeyCandidates   = "candidates"
	KeyTemplates    = "templates"
	KeyPermissions  = "permissions"
	KeyAudit        = "audit"
	KeyDeadLetters  = "dead_letters"
)

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Cache stores whole JSON documents by key.
type Cache interface {
	// Get returns the document for key. ok is false when the key is absent.
	Get(key string) (doc []byte, ok bool, err error)
	// Put replaces the document for key.
	Put(key string, doc []byte) error
	// Keys lists stored keys in sorted order.
	Keys() ([]string, error)
}

// KeyError represents a key that cannot be used as a document name.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid cache key %q", e.Key)
}

func checkKey(key string) error {
	if !keyPattern.MatchString(key) {
		return &KeyError{Key: key}
	}
	return nil
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{docs: make(map[string][]byte)}
}

// Get implements Cache.
func (m *MemoryCache) Get(key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), doc...), true, nil
}

// Put implements Cache.
func (m *MemoryCache) Put(key string, doc []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), doc...)
	return nil
}

// Keys implements Cache.
func (m *MemoryCache) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
