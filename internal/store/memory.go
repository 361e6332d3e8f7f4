package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hairvision-ai/hairvision/internal/models"
	"github.com/hairvision-ai/hairvision/internal/sessioncode"
)

// Memory is a process-local Store.
type Memory struct {
	sessions map[string]*models.Session
	mu       sync.RWMutex
	hub      *Hub
	ttl      time.Duration
	now      func() time.Time
}

func NewMemory(hub *Hub) *Memory {
	if hub == nil {
		hub = NewHub()
	}
	return &Memory{
		sessions: make(map[string]*models.Session),
		hub:      hub,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
}

func (s *Memory) Insert(ctx context.Context, code string, result *models.AnalysisResult, section string) (*models.Session, error) {
	code = sessioncode.Normalize(code)
	if section == "" {
		section = DefaultSection
	}
	now := s.now().UTC()

	s.mu.Lock()
	if _, exists := s.sessions[code]; exists {
		s.mu.Unlock()
		return nil, ErrDuplicateCode
	}
	session := &models.Session{
		ID:             uuid.NewString(),
		SessionCode:    code,
		AnalysisResult: result,
		CurrentSection: section,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}
	s.sessions[code] = session
	out := *session
	s.mu.Unlock()

	s.hub.Publish(Change{Session: out, ResultIncluded: true})
	return &out, nil
}

func (s *Memory) Get(ctx context.Context, code string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessioncode.Normalize(code)]
	if !exists || expired(session, s.now()) {
		return nil, ErrNotFound
	}
	out := *session
	return &out, nil
}

func (s *Memory) PatchSection(ctx context.Context, code, section string, expectVersion int64) (*models.Session, error) {
	s.mu.Lock()
	session, exists := s.sessions[sessioncode.Normalize(code)]
	if !exists || expired(session, s.now()) {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if expectVersion > 0 && session.Version != expectVersion {
		s.mu.Unlock()
		return nil, ErrVersionConflict
	}
	session.CurrentSection = section
	session.Version++
	session.UpdatedAt = s.now().UTC()
	out := *session
	s.mu.Unlock()

	change := out
	change.AnalysisResult = nil
	s.hub.Publish(Change{Session: change})
	return &out, nil
}

func (s *Memory) AttachVisualization(ctx context.Context, code, recommendationID, imageURL string) (*models.Session, error) {
	s.mu.Lock()
	session, exists := s.sessions[sessioncode.Normalize(code)]
	if !exists || expired(session, s.now()) {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if session.AnalysisResult == nil {
		s.mu.Unlock()
		return nil, ErrNoResult
	}
	session.AnalysisResult = withVisualization(session.AnalysisResult, recommendationID, imageURL)
	session.Version++
	session.UpdatedAt = s.now().UTC()
	out := *session
	s.mu.Unlock()

	s.hub.Publish(Change{Session: out, ResultIncluded: true})
	return &out, nil
}

func (s *Memory) Subscribe(ctx context.Context, code string) (<-chan Change, error) {
	return s.hub.Subscribe(ctx, code), nil
}

func (s *Memory) List(ctx context.Context) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Memory) Close() error { return nil }
