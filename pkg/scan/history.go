package scan

import (
	"sync"
	"time"

	"github.com/devicelab-dev/cartpilot/pkg/core"
)

// ClickedPosition is a screen position already processed in this session.
type ClickedPosition struct {
	CenterX   int       `json:"centerX"`
	CenterY   int       `json:"centerY"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// History is a bounded ring buffer of clicked positions. Two positions are
// the same when they are closer than Threshold pixels and, if MatchText is
// set, carry the same text.
type History struct {
	mu        sync.Mutex
	entries   []ClickedPosition
	next      int
	size      int
	threshold float64
	matchText bool
	now       func() time.Time
}

// NewHistory returns an empty history holding at most size positions.
func NewHistory(size int, threshold float64, matchText bool) *History {
	if size <= 0 {
		size = 100
	}
	return &History{
		entries:   make([]ClickedPosition, 0, size),
		size:      size,
		threshold: threshold,
		matchText: matchText,
		now:       time.Now,
	}
}

// Add records a position, evicting the oldest when full.
func (h *History) Add(x, y int, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := ClickedPosition{CenterX: x, CenterY: y, Text: text, Timestamp: h.now()}
	if len(h.entries) < h.size {
		h.entries = append(h.entries, p)
		return
	}
	h.entries[h.next] = p
	h.next = (h.next + 1) % h.size
}

// Seen reports whether a matching position was recorded.
func (h *History) Seen(x, y int, text string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range h.entries {
		if h.same(p, x, y, text) {
			return true
		}
	}
	return false
}

func (h *History) same(p ClickedPosition, x, y int, text string) bool {
	if core.Distance(p.CenterX, p.CenterY, x, y) >= h.threshold {
		return false
	}
	return !h.matchText || p.Text == text
}

// Len returns the number of stored positions.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns the stored positions, oldest first.
func (h *History) Entries() []ClickedPosition {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]ClickedPosition, 0, len(h.entries))
	if len(h.entries) < h.size {
		return append(out, h.entries...)
	}
	out = append(out, h.entries[h.next:]...)
	return append(out, h.entries[:h.next]...)
}

// Reset forgets every position. Used after scrolling to a new page of
// results, where old coordinates no longer mean anything.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
	h.next = 0
}
