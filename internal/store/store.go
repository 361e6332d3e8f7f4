// Package store persists display sessions and fans out their changes.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/sessioncode"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrDuplicateCode   = errors.New("session code already exists")
	ErrNotConfigured   = errors.New("session store not configured")
	ErrVersionConflict = errors.New("session version conflict")
	ErrNoResult        = errors.New("session has no analysis result")
)

// DefaultTTL is how long a session stays readable after creation.
const DefaultTTL = 24 * time.Hour

// DefaultSection is used when Insert is called without a section.
const DefaultSection = "loading"

// Change is delivered to subscribers after every write. ResultIncluded is
// false when only the section moved; consumers must keep the result they
// already hold in that case.
type Change struct {
	Session        models.Session `json:"session"`
	ResultIncluded bool           `json:"result_included"`
}

// Store is the session adapter used by the HTTP layer.
type Store interface {
	// Insert creates a row. Code uniqueness is enforced here, never pre-checked.
	Insert(ctx context.Context, code string, result *models.AnalysisResult, section string) (*models.Session, error)
	Get(ctx context.Context, code string) (*models.Session, error)
	// PatchSection moves the cursor. expectVersion 0 means last-write-wins.
	PatchSection(ctx context.Context, code, section string, expectVersion int64) (*models.Session, error)
	// AttachVisualization records a generated preview on the stored result.
	AttachVisualization(ctx context.Context, code, recommendationID, imageURL string) (*models.Session, error)
	Subscribe(ctx context.Context, code string) (<-chan Change, error)
	List(ctx context.Context) ([]models.Session, error)
	Close() error
}

// Guard returns ErrNotConfigured for a nil store so call sites can degrade.
func Guard(s Store) error {
	if s == nil {
		return ErrNotConfigured
	}
	return nil
}

// ResultPersister returns a function that stores a finished analysis under a
// fresh code and returns that code.
func ResultPersister(s Store, section string) func(ctx context.Context, result *models.AnalysisResult) (string, error) {
	return func(ctx context.Context, result *models.AnalysisResult) (string, error) {
		if err := Guard(s); err != nil {
			return "", err
		}
		code, err := sessioncode.New()
		if err != nil {
			return "", err
		}
		if _, err := s.Insert(ctx, code, result, section); err != nil {
			return "", fmt.Errorf("failed to insert session %s: %w", code, err)
		}
		return code, nil
	}
}

func withVisualization(result *models.AnalysisResult, recommendationID, imageURL string) *models.AnalysisResult {
	out := *result
	out.Visualizations = make(map[string]string, len(result.Visualizations)+1)
	for k, v := range result.Visualizations {
		out.Visualizations[k] = v
	}
	out.Visualizations[recommendationID] = imageURL
	return &out
}

func expired(s *models.Session, now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
