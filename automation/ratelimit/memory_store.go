package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore 进程内滑动窗口存储，按时间顺序保存记录
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]Permit
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Permit)}
}

func (s *MemoryStore) evict(key string, now time.Time, window time.Duration) []Permit {
	list := s.entries[key]
	i := 0
	for i < len(list) && now.Sub(list[i].At) >= window {
		i++
	}
	if i > 0 {
		list = append(list[:0:0], list[i:]...)
		s.entries[key] = list
	}
	return list
}

func (s *MemoryStore) Acquire(_ context.Context, key string, now time.Time, window time.Duration, limit int) (Permit, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.evict(key, now, window)
	if len(list) >= limit {
		return Permit{}, list[0].At, false, nil
	}

	p := Permit{ID: uuid.NewString(), At: now}
	// 时钟回拨时保持有序
	idx := len(list)
	for idx > 0 && list[idx-1].At.After(now) {
		idx--
	}
	list = append(list, Permit{})
	copy(list[idx+1:], list[idx:])
	list[idx] = p
	s.entries[key] = list
	return p, now, true, nil
}

func (s *MemoryStore) Release(_ context.Context, key string, permit Permit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.entries[key]
	for i := range list {
		if list[i].ID == permit.ID {
			s.entries[key] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Count(_ context.Context, key string, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.evict(key, now, window)), nil
}

var _ WindowStore = (*MemoryStore)(nil)
