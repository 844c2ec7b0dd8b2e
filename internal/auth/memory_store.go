package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryCodeStore keeps pending codes in process. Expired entries are
// dropped lazily on read.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]memoryCode
	now   func() time.Time
}

type memoryCode struct {
	Code
	expires time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: make(map[string]memoryCode), now: time.Now}
}

func (m *MemoryCodeStore) Save(ctx context.Context, email, hash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = memoryCode{Code: Code{Hash: hash}, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryCodeStore) Load(ctx context.Context, email string) (Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.live(email)
	if !ok {
		return Code{}, ErrCodeNotFound
	}
	return c.Code, nil
}

func (m *MemoryCodeStore) IncrAttempts(ctx context.Context, email string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.live(email)
	if !ok {
		return 0, ErrCodeNotFound
	}
	c.Attempts++
	m.codes[email] = c
	return c.Attempts, nil
}

func (m *MemoryCodeStore) Delete(ctx context.Context, email string) error {
	m.mu.Lock()
	delete(m.codes, email)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCodeStore) live(email string) (memoryCode, bool) {
	c, ok := m.codes[email]
	if !ok {
		return memoryCode{}, false
	}
	if !m.now().Before(c.expires) {
		delete(m.codes, email)
		return memoryCode{}, false
	}
	return c, true
}
