package store

import (
	"context"
	"sync"

	"github.com/hairvision-ai/hairvision/internal/sessioncode"
)

// Hub fans changes out to per-code subscribers. Each subscriber holds at most
// one pending change; a newer change replaces an unread one.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Change]struct{}
	// last version published per code, used to drop duplicates
	last map[string]int64
	taps []func(Change)
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Change]struct{}),
		last: make(map[string]int64),
	}
}

// Tap registers fn to see every published change.
func (h *Hub) Tap(fn func(Change)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.taps = append(h.taps, fn)
}

// Subscribe returns a channel closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, code string) <-chan Change {
	code = sessioncode.Normalize(code)
	ch := make(chan Change, 1)

	h.mu.Lock()
	set, ok := h.subs[code]
	if !ok {
		set = make(map[chan Change]struct{})
		h.subs[code] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[code], ch)
		if len(h.subs[code]) == 0 {
			delete(h.subs, code)
		}
		close(ch)
	}()
	return ch
}

// Publish delivers c to every subscriber of its code. Changes with a version
// not newer than the last published one are ignored.
func (h *Hub) Publish(c Change) {
	code := sessioncode.Normalize(c.Session.SessionCode)

	h.mu.Lock()
	if c.Session.Version > 0 && c.Session.Version <= h.last[code] {
		h.mu.Unlock()
		return
	}
	h.last[code] = c.Session.Version
	for ch := range h.subs[code] {
		select {
		case ch <- c:
		default:
			// drop the stale change and retry once
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- c:
			default:
			}
		}
	}
	taps := append([]func(Change){}, h.taps...)
	h.mu.Unlock()

	for _, fn := range taps {
		fn(c)
	}
}

// Codes returns the codes that currently have subscribers.
func (h *Hub) Codes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for code := range h.subs {
		out = append(out, code)
	}
	return out
}

// LastVersion returns the newest version published for code.
func (h *Hub) LastVersion(code string) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last[sessioncode.Normalize(code)]
}
