package generator

import (
	"sync"
	"time"
)

// FailedProvider is the provider name recorded for failed calls.
const FailedProvider = "failed"

// HistoryEntry records one top-level Generate call.
type HistoryEntry struct {
	Prompt    string    `json:"prompt"`
	Style     string    `json:"style"`
	Size      string    `json:"size"`
	Provider  string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Fallback  bool      `json:"is_fallback,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// History is an append-only, mutex-guarded log of generation calls.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
}

// Append adds an entry at the end.
func (h *History) Append(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
}

// Snapshot returns a copy of all entries in insertion order.
func (h *History) Snapshot() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// SuccessRate returns the percentage of successful entries, or 0 when empty.
func (h *History) SuccessRate() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return successRate(h.entries)
}

func successRate(entries []HistoryEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	successes := 0
	for _, e := range entries {
		if e.Success {
			successes++
		}
	}
	return 100 * float64(successes) / float64(len(entries))
}
