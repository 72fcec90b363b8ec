package service

import (
	"sync"

	"github.com/JonMunkholm/salesetl/internal/pipeline"
)

// DefaultHistory is the number of run reports kept when none is configured.
const DefaultHistory = 20

// History keeps the most recent run reports in memory, newest last.
type History struct {
	mu    sync.RWMutex
	limit int
	runs  []pipeline.RunReport
}

// NewHistory creates a history holding at most limit reports.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &History{limit: limit}
}

// Put stores r, replacing an earlier report with the same ID. The oldest
// report is evicted when the history is full.
func (h *History) Put(r pipeline.RunReport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.runs {
		if h.runs[i].ID == r.ID {
			h.runs[i] = r
			return
		}
	}
	h.runs = append(h.runs, r)
	if over := len(h.runs) - h.limit; over > 0 {
		h.runs = append(h.runs[:0], h.runs[over:]...)
	}
}

// Get returns the report with the given ID.
func (h *History) Get(id string) (pipeline.RunReport, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range h.runs {
		if r.ID == id {
			return r, true
		}
	}
	return pipeline.RunReport{}, false
}

// List returns the stored reports, newest first.
func (h *History) List() []pipeline.RunReport {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]pipeline.RunReport, len(h.runs))
	for i, r := range h.runs {
		out[len(h.runs)-1-i] = r
	}
	return out
}

// Len returns the number of stored reports.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs)
}
