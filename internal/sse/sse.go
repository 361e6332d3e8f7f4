// Package sse writes and reads text/event-stream frames.
package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// SetHeaders marks the response as an event stream.
func SetHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// WriteSingle answers with exactly one data frame and the given status. It is
// used when a request fails before a stream is opened.
func WriteSingle(w http.ResponseWriter, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(status)
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}

// Writer emits frames on an open stream. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	rc     *http.ResponseController
	opened bool
}

func NewWriter(w http.ResponseWriter) *Writer {
	return &Writer{w: w, rc: http.NewResponseController(w)}
}

// Open sends the headers with a 200 status.
func (s *Writer) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}
	SetHeaders(s.w)
	s.w.WriteHeader(http.StatusOK)
	s.opened = true
	return s.flush()
}

// Data writes "data: <json>\n\n".
func (s *Writer) Data(v any) error {
	return s.Event("", v)
}

// Event writes a named frame; an empty name writes a bare data frame.
func (s *Writer) Event(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return err
	}
	return s.flush()
}

// Comment writes a keep-alive comment line.
func (s *Writer) Comment(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.flush()
}

func (s *Writer) flush() error {
	if s.rc == nil {
		return nil
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Frame is one decoded event.
type Frame struct {
	Event string
	Data  []byte
}

// Reader decodes frames from a stream body.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next frame with data, skipping comments. It returns io.EOF
// when the stream ends cleanly.
func (r *Reader) Next() (Frame, error) {
	var (
		f    Frame
		data []string
	)
	for {
		line, err := r.r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) && len(data) > 0 {
				f.Data = []byte(strings.Join(data, "\n"))
				return f, nil
			}
			return Frame{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if len(data) > 0 {
				f.Data = []byte(strings.Join(data, "\n"))
				return f, nil
			}
			f = Frame{}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			f.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}
