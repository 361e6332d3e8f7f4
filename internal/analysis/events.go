package analysis

import (
	"encoding/json"

	"github.com/hairvision-ai/hairvision/internal/models"
)

type EventType string

const (
	EventStatus   EventType = "status"
	EventChunk    EventType = "chunk"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one frame of the relay stream. Only the fields for its Type are
// encoded.
type Event struct {
	Type        EventType              `json:"type"`
	Message     string                 `json:"message,omitempty"`
	ChunkNum    int                    `json:"chunkNum,omitempty"`
	TotalChars  int                    `json:"totalChars,omitempty"`
	Preview     string                 `json:"preview,omitempty"`
	Data        *models.AnalysisResult `json:"data,omitempty"`
	SessionCode string                 `json:"sessionCode,omitempty"`
	Error       string                 `json:"error,omitempty"`
	// Raw is set on parse failures, even when the reply was empty.
	Raw         *string                `json:"raw,omitempty"`
}

// Terminal reports whether e ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventStatus:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
		}{e.Type, e.Message})
	case EventChunk:
		return json.Marshal(struct {
			Type       EventType `json:"type"`
			ChunkNum   int       `json:"chunkNum"`
			TotalChars int       `json:"totalChars"`
			Preview    string    `json:"preview"`
		}{e.Type, e.ChunkNum, e.TotalChars, e.Preview})
	case EventComplete:
		return json.Marshal(struct {
			Type        EventType              `json:"type"`
			Data        *models.AnalysisResult `json:"data"`
			SessionCode string                 `json:"sessionCode,omitempty"`
		}{e.Type, e.Data, e.SessionCode})
	default:
		return json.Marshal(struct {
			Type  EventType `json:"type"`
			Error string    `json:"error"`
			Raw   *string   `json:"raw,omitempty"`
		}{e.Type, e.Error, e.Raw})
	}
}

func Status(msg string) Event { return Event{Type: EventStatus, Message: msg} }

func Failure(msg string) Event { return Event{Type: EventError, Error: msg} }
