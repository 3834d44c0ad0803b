package controller

import (
	"sync"

	"github.com/hellocym/SwarmClone/internal/message"
)

// historyCapacity is N in "retain the last N (=200) routed messages".
const historyCapacity = 200

// history is the controller's bounded, append-only-until-drained buffer of
// recently routed messages, rendered in the get_messages wire shape. It is
// destructive on read (GetMessages drains it), per the documented decision
// on the spec's open question about drain-vs-page semantics.
type history struct {
	mu  sync.Mutex
	buf []message.DictEntry
}

func newHistory() *history {
	return &history{buf: make([]message.DictEntry, 0, historyCapacity)}
}

// record appends a routed message's rendering, trimming the oldest entry
// once the buffer is at capacity. The rendering is taken when the message is
// routed, so its getters list holds only the observations recorded by then;
// later GetValue calls do not reach the stored entry.
func (h *history) record(e message.DictEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buf) >= historyCapacity {
		h.buf = h.buf[1:]
	}
	h.buf = append(h.buf, e)
}

// drain returns every buffered entry and clears the buffer.
func (h *history) drain() []message.DictEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.buf
	h.buf = make([]message.DictEntry, 0, historyCapacity)
	return out
}

// clear empties the buffer without returning its contents (used by stop).
func (h *history) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf = make([]message.DictEntry, 0, historyCapacity)
}
