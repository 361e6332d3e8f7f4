package display

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	s, err := Parse("recommendation_2")
	require.NoError(t, err)
	assert.Equal(t, SectionRecommendation2, s)

	_, err = Parse("dessert")
	assert.True(t, errors.Is(err, ErrInvalidSection))

	_, err = Parse("")
	assert.Error(t, err)
}

func TestSequence(t *testing.T) {
	assert.Len(t, ValidSections(), 9)
	assert.Equal(t, "loading", ValidSections()[0])
	assert.Equal(t, SectionProducts, LegacySequence[len(LegacySequence)-1])
	for i, s := range Sequence {
		assert.Equal(t, i, s.Index())
		assert.NotEmpty(t, s.Title())
	}
	assert.Equal(t, -1, Section("nope").Index())
}

type recordingPatcher struct {
	mu    sync.Mutex
	calls []Section
	err   error
	delay time.Duration
}

func (p *recordingPatcher) PatchSection(ctx context.Context, code string, s Section) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, s)
	return p.err
}

func (p *recordingPatcher) Calls() []Section {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Section(nil), p.calls...)
}

func TestControllerClampsAtBounds(t *testing.T) {
	p := &recordingPatcher{}
	c := NewController("ABC234", SectionLoading, p)
	ctx := context.Background()

	assert.Equal(t, SectionLoading, c.Prev(ctx))
	c.Wait()
	assert.Empty(t, p.Calls(), "retreating before the first section is a no-op")

	_, err := c.Jump(ctx, SectionStyleComparison)
	require.NoError(t, err)
	c.Wait()
	assert.Equal(t, SectionStyleComparison, c.Next(ctx))
	c.Wait()
	assert.Equal(t, []Section{SectionStyleComparison}, p.Calls())
}

func TestControllerAppliesLocallyFirst(t *testing.T) {
	p := &recordingPatcher{delay: 50 * time.Millisecond}
	c := NewController("ABC234", SectionScanComplete, p)

	got := c.Next(context.Background())
	assert.Equal(t, SectionProfileAnalysis, got)
	assert.Equal(t, SectionProfileAnalysis, c.Current())
	assert.Empty(t, p.Calls(), "write is still in flight")

	c.Wait()
	assert.Equal(t, []Section{SectionProfileAnalysis}, p.Calls())
}

func TestControllerKeepsLocalCursorOnFailure(t *testing.T) {
	p := &recordingPatcher{err: errors.New("store down")}
	c := NewController("ABC234", SectionScanComplete, p)

	var failed []Section
	var mu sync.Mutex
	c.OnError(func(s Section, err error) {
		mu.Lock()
		failed = append(failed, s)
		mu.Unlock()
	})

	c.Next(context.Background())
	c.Wait()

	assert.Equal(t, SectionProfileAnalysis, c.Current())
	mu.Lock()
	assert.Equal(t, []Section{SectionProfileAnalysis}, failed)
	mu.Unlock()
}

func TestControllerLastMoveWins(t *testing.T) {
	p := &recordingPatcher{delay: 10 * time.Millisecond}
	c := NewController("ABC234", SectionLoading, p)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Next(ctx)
	}
	c.Wait()

	calls := p.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, SectionRecommendation2, calls[len(calls)-1])
	assert.Equal(t, SectionRecommendation2, c.Current())
}

func TestControllerJumpRejectsUnknownSection(t *testing.T) {
	c := NewController("ABC234", SectionProducts, &recordingPatcher{})
	got, err := c.Jump(context.Background(), Section("nope"))
	assert.True(t, errors.Is(err, ErrInvalidSection))
	assert.Equal(t, SectionProducts, got)
}

// fakeSource is a store-like Source with a controllable change feed.
type fakeSource struct {
	session *models.Session
	err     error
	changes chan store.Change
}

func (f *fakeSource) Get(ctx context.Context, code string) (*models.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.session
	return &s, nil
}

func (f *fakeSource) Subscribe(ctx context.Context, code string) (<-chan store.Change, error) {
	return f.changes, nil
}

func waitFrame(t *testing.T, v *Viewer, cond func(Frame) bool) Frame {
	t.Helper()
	var last Frame
	require.Eventually(t, func() bool {
		last = v.Frame()
		return cond(last)
	}, 2*time.Second, 5*time.Millisecond, "last frame: %+v", last)
	return last
}

func runViewer(t *testing.T, v *Viewer) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = v.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel
}

func TestViewerPreservesResultOnSectionOnlyChange(t *testing.T) {
	src := &fakeSource{
		session: &models.Session{SessionCode: "ABC234", CurrentSection: "profile_analysis", Version: 1, AnalysisResult: DemoResult()},
		changes: make(chan store.Change, 4),
	}
	v := NewViewer(src, "ABC234")
	runViewer(t, v)
	waitFrame(t, v, func(f Frame) bool { return f.State == StateReady })

	src.changes <- store.Change{Session: models.Session{SessionCode: "ABC234", CurrentSection: "recommendation_1", Version: 2}}

	f := waitFrame(t, v, func(f Frame) bool { return f.Section == SectionRecommendation1 })
	require.NotNil(t, f.Result)
	assert.Equal(t, "Textured Crop", f.Result.Primary().Name)
	assert.Equal(t, int64(2), f.Version)
}

func TestViewerReplacesResultWhenIncluded(t *testing.T) {
	src := &fakeSource{
		session: &models.Session{SessionCode: "ABC234", CurrentSection: "products", Version: 1},
		changes: make(chan store.Change, 1),
	}
	v := NewViewer(src, "ABC234")
	runViewer(t, v)
	first := waitFrame(t, v, func(f Frame) bool { return f.State == StateReady })
	assert.Nil(t, first.Result)

	src.changes <- store.Change{
		Session:        models.Session{SessionCode: "ABC234", CurrentSection: "products", Version: 2, AnalysisResult: DemoResult()},
		ResultIncluded: true,
	}
	f := waitFrame(t, v, func(f Frame) bool { return f.Result != nil })
	assert.Greater(t, f.ResultRev, first.ResultRev)
}

func TestViewerIgnoresStaleChanges(t *testing.T) {
	src := &fakeSource{
		session: &models.Session{SessionCode: "ABC234", CurrentSection: "products", Version: 5},
		changes: make(chan store.Change, 2),
	}
	v := NewViewer(src, "ABC234")
	runViewer(t, v)
	waitFrame(t, v, func(f Frame) bool { return f.State == StateReady })

	src.changes <- store.Change{Session: models.Session{CurrentSection: "loading", Version: 4}}
	src.changes <- store.Change{Session: models.Session{CurrentSection: "overview", Version: 6}}

	f := waitFrame(t, v, func(f Frame) bool { return f.Version == 6 })
	assert.Equal(t, SectionOverview, f.Section)
}

func TestViewerFailsPermanently(t *testing.T) {
	src := &fakeSource{err: store.ErrNotFound, changes: make(chan store.Change, 1)}
	v := NewViewer(src, "NOPE22")

	err := v.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, v.Frame().State)

	v.Apply(store.Change{Session: models.Session{CurrentSection: "products", Version: 9}})
	assert.Equal(t, StateFailed, v.Frame().State)
	assert.Empty(t, v.Frame().Section)
}

func TestViewerScanCompleteGate(t *testing.T) {
	src := &fakeSource{
		session: &models.Session{SessionCode: "ABC234", CurrentSection: "loading", Version: 1},
		changes: make(chan store.Change, 4),
	}
	v := NewViewer(src, "ABC234", WithGate(200*time.Millisecond, 100*time.Millisecond))
	runViewer(t, v)
	waitFrame(t, v, func(f Frame) bool { return f.State == StateReady })

	src.changes <- store.Change{Session: models.Session{CurrentSection: "scan_complete", Version: 2}}
	f := waitFrame(t, v, func(f Frame) bool { return f.Section == SectionScanComplete })
	assert.True(t, f.Animating)

	// a move during the animation is held back
	src.changes <- store.Change{Session: models.Session{CurrentSection: "compatibility_matrix", Version: 3}}
	waitFrame(t, v, func(f Frame) bool { return f.Version == 3 })
	assert.Equal(t, SectionScanComplete, v.Frame().Section)

	waitFrame(t, v, func(f Frame) bool { return f.Fading })
	f = waitFrame(t, v, func(f Frame) bool { return !f.Animating })
	assert.Equal(t, SectionCompatibilityMatrix, f.Section)

	// revisiting does not replay the animation
	src.changes <- store.Change{Session: models.Session{CurrentSection: "scan_complete", Version: 4}}
	f = waitFrame(t, v, func(f Frame) bool { return f.Version == 4 })
	assert.Equal(t, SectionScanComplete, f.Section)
	assert.False(t, f.Animating)
}

func TestViewerGateAdvancesToFirstContent(t *testing.T) {
	v := NewViewer(DemoSource{}, "demo", WithGate(20*time.Millisecond, 10*time.Millisecond))
	runViewer(t, v)

	f := waitFrame(t, v, func(f Frame) bool { return f.State == StateReady })
	assert.Equal(t, SectionScanComplete, f.Section)
	assert.True(t, f.Animating)

	f = waitFrame(t, v, func(f Frame) bool { return f.Section == FirstContent })
	assert.False(t, f.Animating)
	require.NotNil(t, f.Result)
	assert.Len(t, f.Result.Recommendations, 2)
}

func TestDemoFixture(t *testing.T) {
	r := DemoResult()
	assert.Equal(t, models.FaceShape("oval"), r.GeometricAnalysis.FaceShape)
	require.Len(t, r.Recommendations, 2)
	assert.Equal(t, "rec_1", r.Recommendations[0].ID)
	assert.Equal(t, "Textured Crop", r.Recommendations[0].Name)
	assert.Equal(t, "Modern Undercut", r.Recommendations[1].Name)
	assert.Len(t, r.CompatibilityMatrix, 5)
	assert.Equal(t, models.HairTexture("wavy"), r.GeometricAnalysis.Texture())
	for _, rec := range r.Recommendations {
		assert.True(t, rec.BarberInstructions.Sides.ClipperGuard.Valid(), rec.Name)
		for _, tech := range rec.BarberInstructions.Texture.Techniques {
			assert.True(t, tech.Valid(), string(tech))
		}
	}

	_, err := DemoSource{}.Get(context.Background(), "ABC234")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
