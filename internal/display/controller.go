package display

import (
	"context"
	"log/slog"
	"sync"
)

// Patcher persists a new cursor position for a session code.
type Patcher interface {
	PatchSection(ctx context.Context, code string, section Section) error
}

// PatcherFunc adapts a function to Patcher.
type PatcherFunc func(ctx context.Context, code string, section Section) error

func (f PatcherFunc) PatchSection(ctx context.Context, code string, section Section) error {
	return f(ctx, code, section)
}

// Controller drives a display. Moves apply locally at once and are persisted
// in the background; a failed write is logged and the local cursor is kept.
type Controller struct {
	code    string
	patcher Patcher
	logger  *slog.Logger

	mu     sync.Mutex
	cursor int
	seq    uint64

	persistMu sync.Mutex
	wg        sync.WaitGroup
	onError   func(Section, error)
}

// NewController starts at the given section, or the first one when start is invalid.
func NewController(code string, start Section, patcher Patcher) *Controller {
	idx := start.Index()
	if idx < 0 {
		idx = 0
	}
	return &Controller{
		code:    code,
		patcher: patcher,
		logger:  slog.Default().With("session_code", code),
		cursor:  idx,
	}
}

// OnError registers a callback for failed writes, in addition to logging.
func (c *Controller) OnError(fn func(Section, error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

func (c *Controller) Code() string { return c.code }

// Current returns the locally applied section.
func (c *Controller) Current() Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Sequence[c.cursor]
}

// Next advances one section. At the last section it is a no-op.
func (c *Controller) Next(ctx context.Context) Section { return c.move(ctx, 1) }

// Prev goes back one section. At the first section it is a no-op.
func (c *Controller) Prev(ctx context.Context) Section { return c.move(ctx, -1) }

// Jump moves directly to s.
func (c *Controller) Jump(ctx context.Context, s Section) (Section, error) {
	idx := s.Index()
	if idx < 0 {
		_, err := Parse(string(s))
		return c.Current(), err
	}
	c.mu.Lock()
	if idx == c.cursor {
		c.mu.Unlock()
		return s, nil
	}
	c.cursor = idx
	seq := c.bump()
	c.mu.Unlock()

	c.persist(ctx, s, seq)
	return s, nil
}

func (c *Controller) move(ctx context.Context, delta int) Section {
	c.mu.Lock()
	idx := step(c.cursor, delta)
	if idx == c.cursor {
		c.mu.Unlock()
		return Sequence[idx]
	}
	c.cursor = idx
	seq := c.bump()
	c.mu.Unlock()

	s := Sequence[idx]
	c.persist(ctx, s, seq)
	return s
}

// bump must be called with mu held.
func (c *Controller) bump() uint64 {
	c.seq++
	return c.seq
}

func (c *Controller) latest() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// persist writes s unless a newer move has superseded it, so the store always
// ends on the last local position.
func (c *Controller) persist(ctx context.Context, s Section, seq uint64) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.persistMu.Lock()
		defer c.persistMu.Unlock()

		if c.latest() != seq {
			return
		}
		if err := c.patcher.PatchSection(ctx, c.code, s); err != nil {
			c.logger.Error("Failed to persist section", "section", s, "err", err)
			c.mu.Lock()
			fn := c.onError
			c.mu.Unlock()
			if fn != nil {
				fn(s, err)
			}
			return
		}
		c.logger.Debug("Persisted section", "section", s)
	}()
}

// Wait blocks until every background write has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}
