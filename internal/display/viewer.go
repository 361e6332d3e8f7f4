package display

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/store"
)

// Source is what a display reads from. store.Store satisfies it.
type Source interface {
	Get(ctx context.Context, code string) (*models.Session, error)
	Subscribe(ctx context.Context, code string) (<-chan store.Change, error)
}

type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

const (
	DefaultGateVisible = 2500 * time.Millisecond
	DefaultGateFade    = 500 * time.Millisecond
)

// Frame is a point-in-time view of the display.
type Frame struct {
	State     State                  `json:"state"`
	Section   Section                `json:"section,omitempty"`
	Result    *models.AnalysisResult `json:"result,omitempty"`
	Animating bool                   `json:"animating"`
	Fading    bool                   `json:"fading"`
	Version   int64                  `json:"version"`
	Error     string                 `json:"error,omitempty"`

	// ResultRev increments whenever Result is replaced.
	ResultRev int `json:"-"`
}

// Viewer is the display side of a session. It loads the row once, then
// follows changes. A failed load is final.
type Viewer struct {
	src     Source
	code    string
	visible time.Duration
	fade    time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	frame    Frame
	gateUsed bool
	pending  Section
	timers   []*time.Timer
	notify   chan struct{}
}

type ViewerOption func(*Viewer)

// WithGate overrides the scan-complete animation timings.
func WithGate(visible, fade time.Duration) ViewerOption {
	return func(v *Viewer) {
		v.visible = visible
		v.fade = fade
	}
}

func NewViewer(src Source, code string, opts ...ViewerOption) *Viewer {
	v := &Viewer{
		src:     src,
		code:    code,
		visible: DefaultGateVisible,
		fade:    DefaultGateFade,
		logger:  slog.Default().With("session_code", code),
		frame:   Frame{State: StateLoading},
		notify:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Updates signals after every frame change. Signals coalesce.
func (v *Viewer) Updates() <-chan struct{} { return v.notify }

// Frame returns the current frame.
func (v *Viewer) Frame() Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame
}

// Run loads the session and applies changes until ctx is done. The
// subscription is opened before the read so nothing between the two is lost;
// changes not newer than the loaded row are ignored.
func (v *Viewer) Run(ctx context.Context) error {
	defer v.stopTimers()

	changes, err := v.src.Subscribe(ctx, v.code)
	if err != nil {
		v.fail(err)
		return err
	}

	session, err := v.src.Get(ctx, v.code)
	if err != nil {
		v.fail(err)
		return err
	}
	v.load(session)

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			v.Apply(c)
		}
	}
}

func (v *Viewer) load(s *models.Session) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.frame.State = StateReady
	v.frame.Version = s.Version
	v.frame.Result = s.AnalysisResult
	v.frame.ResultRev++

	section := Section(s.CurrentSection)
	if !section.Valid() {
		v.logger.Warn("Unknown section in stored session", "section", s.CurrentSection)
		section = Sequence[0]
	}
	v.moveTo(section)
	v.signal()
}

func (v *Viewer) fail(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logger.Error("Display failed to load session", "err", err)
	v.frame = Frame{State: StateFailed, Error: err.Error()}
	v.signal()
}

// Apply folds one change into the frame. A change without the result moves
// the section and keeps the result already held.
func (v *Viewer) Apply(c store.Change) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.frame.State != StateReady {
		return
	}
	if c.Session.Version != 0 && c.Session.Version <= v.frame.Version {
		return
	}
	v.frame.Version = c.Session.Version

	if c.ResultIncluded && c.Session.AnalysisResult != nil {
		v.frame.Result = c.Session.AnalysisResult
		v.frame.ResultRev++
	}

	section := Section(c.Session.CurrentSection)
	if section.Valid() {
		v.moveTo(section)
	} else {
		v.logger.Warn("Ignoring unknown section", "section", c.Session.CurrentSection)
	}
	v.signal()
}

// moveTo must be called with mu held. While the scan-complete animation runs
// the move is parked and applied when it ends.
func (v *Viewer) moveTo(s Section) {
	if v.frame.Animating {
		v.pending = s
		return
	}
	v.frame.Section = s
	if s == SectionScanComplete && !v.gateUsed {
		v.startGate()
	}
}

func (v *Viewer) startGate() {
	v.gateUsed = true
	v.frame.Animating = true
	v.frame.Fading = false

	v.timers = append(v.timers,
		time.AfterFunc(v.visible, func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			v.frame.Fading = true
			v.signal()
		}),
		time.AfterFunc(v.visible+v.fade, func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			v.frame.Animating = false
			v.frame.Fading = false
			next := FirstContent
			if v.pending != "" && v.pending != SectionScanComplete {
				next = v.pending
			}
			v.pending = ""
			v.frame.Section = next
			v.signal()
		}),
	)
}

func (v *Viewer) stopTimers() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range v.timers {
		t.Stop()
	}
	v.timers = nil
}

// signal must be called with mu held.
func (v *Viewer) signal() {
	select {
	case v.notify <- struct{}{}:
	default:
	}
}
