package models

import "time"

// Session is the durable row shared by a control tab and a display tab.
type Session struct {
	ID             string          `json:"id"`
	SessionCode    string          `json:"session_code"`
	AnalysisResult *AnalysisResult `json:"analysis_result,omitempty"`
	CurrentSection string          `json:"current_section"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// SessionSummary is the public projection returned by GET /session/{code}.
type SessionSummary struct {
	ID             string    `json:"id"`
	SessionCode    string    `json:"session_code"`
	CurrentSection string    `json:"current_section"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary projects s without its analysis payload.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:             s.ID,
		SessionCode:    s.SessionCode,
		CurrentSection: s.CurrentSection,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
	}
}
