package display

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/sessioncode"
	"github.com/hairvision-ai/hairvision/internal/store"
)

//go:embed demo.json
var demoJSON []byte

// DemoResult returns a fresh copy of the canned analysis.
func DemoResult() *models.AnalysisResult {
	var result models.AnalysisResult
	if err := json.Unmarshal(demoJSON, &result); err != nil {
		panic(fmt.Sprintf("display: embedded demo.json: %v", err))
	}
	return &result
}

// DemoSession is the row served for the reserved demo code.
func DemoSession() *models.Session {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:             "demo-session-001",
		SessionCode:    sessioncode.Demo,
		AnalysisResult: DemoResult(),
		CurrentSection: string(SectionScanComplete),
		Version:        1,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

// DemoSource serves the canned session without a store. It never changes.
type DemoSource struct{}

func (DemoSource) Get(ctx context.Context, code string) (*models.Session, error) {
	if !sessioncode.IsDemo(code) {
		return nil, store.ErrNotFound
	}
	return DemoSession(), nil
}

func (DemoSource) Subscribe(ctx context.Context, code string) (<-chan store.Change, error) {
	ch := make(chan store.Change)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}
