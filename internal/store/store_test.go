package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:        "result-1",
		SessionID: "client-1",
		GeometricAnalysis: models.GeometricAnalysis{
			FaceShape:   "oval",
			HairTexture: "wavy",
			HairDensity: "thick",
		},
		Recommendations: []models.HairstyleRecommendation{
			{ID: "rec_1", Name: "Textured Crop", SuitabilityScore: 92},
			{ID: "rec_2", Name: "Modern Undercut", SuitabilityScore: 85},
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// stores returns a fresh instance of every implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemory(nil),
		"sqlite": sq,
	}
}

func TestInsertAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created, err := s.Insert(ctx, "abc234", sampleResult(), "scan_complete")
			require.NoError(t, err)
			assert.Equal(t, "ABC234", created.SessionCode)
			assert.Equal(t, int64(1), created.Version)
			assert.Equal(t, DefaultTTL, created.ExpiresAt.Sub(created.CreatedAt))

			got, err := s.Get(ctx, "Abc234")
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, "scan_complete", got.CurrentSection)
			require.NotNil(t, got.AnalysisResult)
			assert.Equal(t, "Textured Crop", got.AnalysisResult.Primary().Name)
		})
	}
}

func TestInsertDefaultsSection(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			created, err := s.Insert(context.Background(), "QWE234", nil, "")
			require.NoError(t, err)
			assert.Equal(t, DefaultSection, created.CurrentSection)
			assert.Nil(t, created.AnalysisResult)
		})
	}
}

func TestInsertDuplicateCode(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Insert(ctx, "DUP234", sampleResult(), "loading")
			require.NoError(t, err)
			_, err = s.Insert(ctx, "dup234", sampleResult(), "loading")
			assert.True(t, errors.Is(err, ErrDuplicateCode), "got %v", err)
		})
	}
}

func TestGetUnknown(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "NOPE22")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestPatchSection(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Insert(ctx, "PAT234", sampleResult(), "scan_complete")
			require.NoError(t, err)

			updated, err := s.PatchSection(ctx, "pat234", "products", 0)
			require.NoError(t, err)
			assert.Equal(t, "products", updated.CurrentSection)
			assert.Equal(t, int64(2), updated.Version)

			got, err := s.Get(ctx, "PAT234")
			require.NoError(t, err)
			assert.Equal(t, "products", got.CurrentSection)
			require.NotNil(t, got.AnalysisResult, "patching the section must not drop the result")

			_, err = s.PatchSection(ctx, "MISSING", "products", 0)
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestPatchSectionVersionCheck(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Insert(ctx, "VER234", nil, "loading")
			require.NoError(t, err)

			_, err = s.PatchSection(ctx, "VER234", "scan_complete", 1)
			require.NoError(t, err)

			_, err = s.PatchSection(ctx, "VER234", "products", 1)
			assert.True(t, errors.Is(err, ErrVersionConflict), "got %v", err)

			_, err = s.PatchSection(ctx, "NOPE22", "products", 1)
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

			got, err := s.Get(ctx, "VER234")
			require.NoError(t, err)
			assert.Equal(t, "scan_complete", got.CurrentSection)
		})
	}
}

func TestAttachVisualization(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Insert(ctx, "VIS234", sampleResult(), "loading")
			require.NoError(t, err)

			updated, err := s.AttachVisualization(ctx, "VIS234", "rec_1", "data:image/png;base64,aGk=")
			require.NoError(t, err)
			assert.Equal(t, "data:image/png;base64,aGk=", updated.AnalysisResult.Visualizations["rec_1"])

			got, err := s.Get(ctx, "VIS234")
			require.NoError(t, err)
			assert.Equal(t, "data:image/png;base64,aGk=", got.AnalysisResult.Visualizations["rec_1"])

			_, err = s.Insert(ctx, "EMP234", nil, "loading")
			require.NoError(t, err)
			_, err = s.AttachVisualization(ctx, "EMP234", "rec_1", "x")
			assert.True(t, errors.Is(err, ErrNoResult))
		})
	}
}

func TestAttachVisualizationConcurrentWrites(t *testing.T) {
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "concurrent.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	ctx := context.Background()
	_, err = sq.Insert(ctx, "CON234", sampleResult(), "loading")
	require.NoError(t, err)

	recs := []string{"rec_1", "rec_2", "rec_3"}
	sections := []string{"overview", "recommendations", "products", "instructions"}

	var g errgroup.Group
	for _, id := range recs {
		g.Go(func() error {
			_, err := sq.AttachVisualization(ctx, "CON234", id, "data:image/png;base64,"+id)
			return err
		})
	}
	for _, section := range sections {
		g.Go(func() error {
			_, err := sq.PatchSection(ctx, "CON234", section, 0)
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := sq.Get(ctx, "CON234")
	require.NoError(t, err)
	for _, id := range recs {
		assert.Equal(t, "data:image/png;base64,"+id, got.AnalysisResult.Visualizations[id])
	}
	assert.Equal(t, int64(1+len(recs)+len(sections)), got.Version)
	assert.Contains(t, sections, got.CurrentSection)
}

func TestExpiredSessionsAreNotFound(t *testing.T) {
	mem := NewMemory(nil)
	mem.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	_, err := mem.Insert(context.Background(), "EXP234", nil, "loading")
	require.NoError(t, err)

	mem.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 1, 0, time.UTC) }
	_, err = mem.Get(context.Background(), "EXP234")
	assert.True(t, errors.Is(err, ErrNotFound))

	sq, err := NewSQLite(filepath.Join(t.TempDir(), "s.db"), nil)
	require.NoError(t, err)
	defer sq.Close()
	sq.now = mem.now
	sq.ttl = -time.Minute
	_, err = sq.Insert(context.Background(), "EXP234", nil, "loading")
	require.NoError(t, err)
	_, err = sq.Get(context.Background(), "EXP234")
	assert.True(t, errors.Is(err, ErrNotFound))

	n, err := sq.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, code := range []string{"AAA222", "BBB222"} {
				_, err := s.Insert(ctx, code, nil, "loading")
				require.NoError(t, err)
			}
			all, err := s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestSubscribeReceivesSectionChanges(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			_, err := s.Insert(ctx, "SUB234", sampleResult(), "scan_complete")
			require.NoError(t, err)

			ch, err := s.Subscribe(ctx, "sub234")
			require.NoError(t, err)

			_, err = s.PatchSection(ctx, "SUB234", "recommendation_1", 0)
			require.NoError(t, err)

			select {
			case c := <-ch:
				assert.Equal(t, "recommendation_1", c.Session.CurrentSection)
				assert.False(t, c.ResultIncluded)
				assert.Nil(t, c.Session.AnalysisResult)
			case <-time.After(2 * time.Second):
				t.Fatal("no change received")
			}

			cancel()
			require.Eventually(t, func() bool {
				_, open := <-ch
				return !open
			}, time.Second, 10*time.Millisecond)
		})
	}
}

func TestResultPersister(t *testing.T) {
	mem := NewMemory(nil)
	persist := ResultPersister(mem, "scan_complete")

	code, err := persist(context.Background(), sampleResult())
	require.NoError(t, err)
	assert.Len(t, code, 6)

	got, err := mem.Get(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "scan_complete", got.CurrentSection)

	_, err = ResultPersister(nil, "loading")(context.Background(), sampleResult())
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestMirrorMessage(t *testing.T) {
	topic, payload, err := mirrorMessage("hv/sessions", Change{
		Session: models.Session{SessionCode: "abc234", CurrentSection: "products", Version: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "hv/sessions/ABC234", topic)

	var decoded Change
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "products", decoded.Session.CurrentSection)
	assert.False(t, decoded.ResultIncluded)
}

func TestMirrorConnectFailureStopsRetrying(t *testing.T) {
	m := NewMQTTMirror("127.0.0.1:1", "test", "")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.Error(t, m.Connect(ctx))
	// a retrying client reports itself connected; a closed one does not
	assert.Error(t, m.Publish(Change{}))
	assert.NotPanics(t, m.Close)
}

func TestMirrorPublishWithoutConnection(t *testing.T) {
	m := NewMQTTMirror("localhost:1883", "test", "")
	assert.Error(t, m.Publish(Change{}))
	_, failed := m.Stats()
	assert.Equal(t, uint64(1), failed)
}
