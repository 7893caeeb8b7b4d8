package catalog

import (
	"sync"
)

// MemoryHistory is an in-process browser history for one catalog session
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
	index   int
}

// NewMemoryHistory creates a history holding a single entry
func NewMemoryHistory(initial string) *MemoryHistory {
	return &MemoryHistory{entries: []string{initial}}
}

// Replace overwrites the current entry
func (h *MemoryHistory) Replace(rawQuery string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = rawQuery
}

// Push adds an entry after the current one and drops any forward entries
func (h *MemoryHistory) Push(rawQuery string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entries[h.index] == rawQuery {
		return
	}
	h.entries = append(h.entries[:h.index+1], rawQuery)
	h.index++
}

// Back moves one entry back and returns it
func (h *MemoryHistory) Back() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return h.entries[h.index], false
	}
	h.index--
	return h.entries[h.index], true
}

// Forward moves one entry forward and returns it
func (h *MemoryHistory) Forward() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == len(h.entries)-1 {
		return h.entries[h.index], false
	}
	h.index++
	return h.entries[h.index], true
}

// Current returns the current entry
func (h *MemoryHistory) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Len returns the number of entries
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
